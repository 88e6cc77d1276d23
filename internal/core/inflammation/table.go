package inflammation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// 發炎表欄位
const (
	colIngredient          = "ingredient"
	colDIIScore            = "dii_score"
	colMatchedNutrients    = "matched_nutrients"
	colTotalNutrients      = "total_nutrients"
	colMatchPercentage     = "match_percentage"
	colGeneralInflammation = "general people inflammation"
	personColumnSuffix     = " inflammation"
)

// Row 發炎表的一列
type Row struct {
	Result    DIIResult
	Scores    ScoreSet
	Nutrients NutrientProfile
}

// Generator 由營養成分表產生發炎表
type Generator struct {
	scorer       *Scorer
	personalizer *Personalizer
}

// NewGenerator 創建發炎表產生器
func NewGenerator(scorer *Scorer, personalizer *Personalizer) *Generator {
	if scorer == nil {
		scorer = NewScorer()
	}
	if personalizer == nil {
		personalizer = NewPersonalizer()
	}
	return &Generator{scorer: scorer, personalizer: personalizer}
}

// Persons 回傳輸出表格中的個人欄位
func (g *Generator) Persons() []string {
	return g.personalizer.Persons()
}

// Generate 依食材首次出現順序計算每列
func (g *Generator) Generate(store *NutrientStore) ([]Row, error) {
	if store == nil || store.Len() == 0 {
		return nil, common.Wrap(common.ErrEmptyCatalog, fmt.Errorf("nutrient table has no ingredients"))
	}

	rows := make([]Row, 0, store.Len())
	for _, name := range store.Ingredients() {
		profile, _ := store.Lookup(name)
		result := g.scorer.Score(name, profile)
		rows = append(rows, Row{
			Result:    result,
			Scores:    g.personalizer.Personalize(result.Score, name),
			Nutrients: profile,
		})
	}

	common.LogDebug("發炎表計算完成", zap.Int("rows", len(rows)))
	return rows, nil
}

// PersonColumn 回傳個人欄位名稱，例如 "sam" → "Sam inflammation"
func PersonColumn(person string) string {
	return cases.Title(language.English).String(person) + personColumnSuffix
}

// WriteCSV 輸出發炎表：固定欄位、各人欄位，再接依字母排序的營養素欄位
func WriteCSV(w io.Writer, rows []Row, nutrientNames []string, persons []string) error {
	writer := csv.NewWriter(w)

	header := []string{
		colIngredient,
		colDIIScore,
		colMatchedNutrients,
		colTotalNutrients,
		colMatchPercentage,
		colGeneralInflammation,
	}
	for _, p := range persons {
		header = append(header, PersonColumn(p))
	}
	header = append(header, nutrientNames...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		record = append(record,
			row.Result.Ingredient,
			formatFloat(common.Round(row.Result.Score, 4)),
			strconv.Itoa(row.Result.MatchedCount),
			strconv.Itoa(row.Result.TotalCount),
			formatFloat(common.Round(row.Result.MatchPercentage, 1)),
			optionalFloat(row.Scores, PersonGeneral),
		)
		for _, p := range persons {
			record = append(record, optionalFloat(row.Scores, p))
		}
		for _, n := range nutrientNames {
			if v, ok := row.Nutrients[n]; ok {
				record = append(record, formatFloat(v))
			} else {
				record = append(record, "")
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %q: %w", row.Result.Ingredient, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func optionalFloat(s ScoreSet, person string) string {
	v, ok := s.Get(person)
	if !ok {
		return ""
	}
	return formatFloat(common.Round(v, 4))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Table 預先計算好的食材發炎分數表，鍵為小寫食材名稱
type Table struct {
	scores  map[string]ScoreSet
	keys    []string
	persons []string
}

// NormalizeKey 正規化食材名稱：NFC、去除前後空白、轉小寫
func NormalizeKey(name string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(name)))
}

// ReadTable 解析發炎表 CSV；空白欄位代表該人無資料
func ReadTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("inflammation table is empty"))
		}
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("read inflammation table header: %w", err))
	}
	cols, err := indexColumns(header, colIngredient, colGeneralInflammation)
	if err != nil {
		return nil, common.Wrap(common.ErrDataUnavailable, err)
	}

	// 個人欄位："<Name> inflammation"
	personCols := make(map[string]int)
	t := &Table{scores: make(map[string]ScoreSet)}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == colGeneralInflammation || !strings.HasSuffix(h, personColumnSuffix) {
			continue
		}
		person := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(h, personColumnSuffix)))
		if person == "" {
			continue
		}
		if _, dup := personCols[person]; !dup {
			personCols[person] = i
			t.persons = append(t.persons, person)
		}
	}

	line := 1
	malformed := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("read inflammation table line %d: %w", line, err))
		}

		key := NormalizeKey(field(record, cols[colIngredient]))
		if key == "" {
			continue
		}

		set := ScoreSet{Scores: make(map[string]float64)}
		if v, present, ok := parseOptional(field(record, cols[colGeneralInflammation])); present {
			set.Scores[PersonGeneral] = v
			if !ok {
				malformed++
			}
		}
		for _, person := range t.persons {
			if v, present, ok := parseOptional(field(record, personCols[person])); present {
				set.Scores[person] = v
				if !ok {
					malformed++
				}
			}
		}

		if _, exists := t.scores[key]; !exists {
			t.keys = append(t.keys, key)
		}
		t.scores[key] = set
	}

	common.LogInfo("發炎分數表已載入",
		zap.Int("ingredients", len(t.keys)),
		zap.Strings("persons", t.persons),
		zap.Int("malformed_values", malformed),
	)
	return t, nil
}

// parseOptional 空字串為缺值；無法解析的數值以 0 代替
func parseOptional(raw string) (value float64, present bool, ok bool) {
	if strings.TrimSpace(raw) == "" {
		return 0, false, true
	}
	v, ok := ParseDecimal(raw)
	return v, true, ok
}

// NewTable 由列直接建立分數表
func NewTable(rows []Row, persons []string) *Table {
	t := &Table{scores: make(map[string]ScoreSet, len(rows))}
	for _, p := range persons {
		t.persons = append(t.persons, strings.ToLower(p))
	}
	for _, row := range rows {
		key := NormalizeKey(row.Result.Ingredient)
		if key == "" {
			continue
		}
		if _, exists := t.scores[key]; !exists {
			t.keys = append(t.keys, key)
		}
		t.scores[key] = row.Scores
	}
	return t
}

// Lookup 以正規化後的名稱查詢
func (t *Table) Lookup(key string) (ScoreSet, bool) {
	s, ok := t.scores[NormalizeKey(key)]
	return s, ok
}

// Keys 依檔案順序回傳食材鍵
func (t *Table) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Persons 回傳表格中的個人欄位（不含 general）
func (t *Table) Persons() []string {
	out := make([]string, len(t.persons))
	copy(out, t.persons)
	return out
}

// Len 回傳食材數
func (t *Table) Len() int {
	return len(t.keys)
}
