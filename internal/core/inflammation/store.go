package inflammation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// 營養成分表欄位
const (
	colIngredientCode        = "Ingredient code"
	colIngredientDescription = "Ingredient description"
	colNutrientDescription   = "Nutrient description"
	colNutrientValue         = "Nutrient value"
)

// NutrientProfile 單一食材的原始營養素名稱到數值
type NutrientProfile map[string]float64

// NutrientStore 食材營養成分表，載入後唯讀
type NutrientStore struct {
	profiles  map[string]NutrientProfile
	codes     map[string]string
	order     []string
	nutrients map[string]struct{}
	malformed int
}

// LoadNutrientStore 從檔案載入營養成分表
func LoadNutrientStore(path string) (*NutrientStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("open nutrient table %s: %w", path, err))
	}
	defer f.Close()
	return ReadNutrientStore(f)
}

// ReadNutrientStore 解析營養成分 CSV，每列為 (食材代碼, 食材描述, 營養素描述, 數值)
func ReadNutrientStore(r io.Reader) (*NutrientStore, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("nutrient table is empty"))
		}
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("read nutrient table header: %w", err))
	}
	cols, err := indexColumns(header, colIngredientCode, colIngredientDescription, colNutrientDescription, colNutrientValue)
	if err != nil {
		return nil, common.Wrap(common.ErrDataUnavailable, err)
	}

	s := &NutrientStore{
		profiles:  make(map[string]NutrientProfile),
		codes:     make(map[string]string),
		nutrients: make(map[string]struct{}),
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("read nutrient table line %d: %w", line, err))
		}

		ingredient := strings.Trim(strings.TrimSpace(field(record, cols[colIngredientDescription])), `"`)
		nutrient := field(record, cols[colNutrientDescription])
		if ingredient == "" {
			continue
		}

		value, ok := ParseDecimal(field(record, cols[colNutrientValue]))
		if !ok {
			s.malformed++
			common.LogDebug("營養素數值無法解析，以 0 代替",
				zap.Int("line", line),
				zap.String("ingredient", ingredient),
				zap.String("nutrient", nutrient),
			)
		}

		s.nutrients[nutrient] = struct{}{}
		profile, exists := s.profiles[ingredient]
		if !exists {
			profile = make(NutrientProfile)
			s.profiles[ingredient] = profile
			s.codes[ingredient] = field(record, cols[colIngredientCode])
			s.order = append(s.order, ingredient)
		}
		profile[nutrient] = value
	}

	common.LogInfo("營養成分表已載入",
		zap.Int("ingredients", len(s.order)),
		zap.Int("nutrients", len(s.nutrients)),
		zap.Int("malformed_values", s.malformed),
	)

	return s, nil
}

// ParseDecimal 解析數值，接受逗號小數點；失敗時回傳 0 與 false
func ParseDecimal(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0.0, false
	}
	return v, true
}

// Lookup 以食材描述精確查詢營養素
func (s *NutrientStore) Lookup(ingredient string) (NutrientProfile, bool) {
	p, ok := s.profiles[ingredient]
	return p, ok
}

// Code 回傳食材代碼
func (s *NutrientStore) Code(ingredient string) string {
	return s.codes[ingredient]
}

// Ingredients 依首次出現順序回傳食材
func (s *NutrientStore) Ingredients() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// NutrientNames 依字母排序回傳所有出現過的營養素名稱
func (s *NutrientStore) NutrientNames() []string {
	out := make([]string, 0, len(s.nutrients))
	for n := range s.nutrients {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MalformedCount 回傳以 0 代替的無效數值個數
func (s *NutrientStore) MalformedCount() int {
	return s.malformed
}

// Len 回傳食材數
func (s *NutrientStore) Len() int {
	return len(s.order)
}

// indexColumns 找出必要欄位的位置
func indexColumns(header []string, required ...string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	out := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		out[name] = i
	}
	return out, nil
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}
