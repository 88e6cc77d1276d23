package inflammation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"inflammation-planner/internal/pkg/common"
)

// PersonGeneral 一般族群的分數名稱
const PersonGeneral = "general"

// SensitivityRule 名稱包含任一子字串時套用的倍率
type SensitivityRule struct {
	Substrings []string `json:"substrings"`
	Multiplier float64  `json:"multiplier"`
}

// Profile 個人敏感度設定，規則依序比對，第一條命中者生效
type Profile struct {
	Name  string            `json:"name"`
	Rules []SensitivityRule `json:"rules"`
}

// multiplier 回傳食材對此人的倍率，未命中為 1.0
func (p Profile) multiplier(ingredientLower string) float64 {
	for _, rule := range p.Rules {
		for _, sub := range rule.Substrings {
			if strings.Contains(ingredientLower, sub) {
				return rule.Multiplier
			}
		}
	}
	return 1.0
}

// DefaultProfiles 回傳內建的兩位使用者設定
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name: "sam",
			Rules: []SensitivityRule{
				{Substrings: []string{"dairy", "milk", "cheese", "butter"}, Multiplier: 1.3},
				{Substrings: []string{"gluten", "wheat", "bread"}, Multiplier: 1.2},
				{Substrings: []string{"sugar", "sweet"}, Multiplier: 1.15},
			},
		},
		{
			Name: "andrea",
			Rules: []SensitivityRule{
				{Substrings: []string{"nightshade", "tomato", "pepper", "potato"}, Multiplier: 1.25},
				{Substrings: []string{"nuts", "almond", "peanut"}, Multiplier: 1.1},
			},
		},
	}
}

// DataAvailability 判斷某人是否有某食材的資料
type DataAvailability interface {
	HasData(person, ingredient string) bool
}

// AllAvailable 所有人都有所有食材的資料
type AllAvailable struct{}

// HasData 永遠回傳 true
func (AllAvailable) HasData(string, string) bool { return true }

// AvailabilitySet 明確列出每個人有資料的食材；未列出的人視為全部可用
type AvailabilitySet map[string]map[string]bool

// HasData 實作 DataAvailability
func (s AvailabilitySet) HasData(person, ingredient string) bool {
	items, ok := s[strings.ToLower(person)]
	if !ok {
		return true
	}
	return items[strings.ToLower(strings.TrimSpace(ingredient))]
}

// ReadAvailability 解析 (person, ingredient) 兩欄 CSV
func ReadAvailability(r io.Reader) (AvailabilitySet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return AvailabilitySet{}, nil
		}
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("read availability header: %w", err))
	}
	cols, err := indexColumns(header, "person", "ingredient")
	if err != nil {
		return nil, common.Wrap(common.ErrDataUnavailable, err)
	}

	set := make(AvailabilitySet)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("read availability: %w", err))
		}
		person := strings.ToLower(strings.TrimSpace(field(record, cols["person"])))
		ingredient := strings.ToLower(strings.TrimSpace(field(record, cols["ingredient"])))
		if person == "" || ingredient == "" {
			continue
		}
		if set[person] == nil {
			set[person] = make(map[string]bool)
		}
		set[person][ingredient] = true
	}
	return set, nil
}

// ScoreSet 一個食材的一般分數與個人化分數，缺少的人即為無資料
type ScoreSet struct {
	Scores map[string]float64 `json:"scores"`
}

// Get 取得某人的分數
func (s ScoreSet) Get(person string) (float64, bool) {
	v, ok := s.Scores[strings.ToLower(person)]
	return v, ok
}

// General 回傳一般分數
func (s ScoreSet) General() float64 {
	return s.Scores[PersonGeneral]
}

// Persons 回傳有分數的個人（不含 general），依名稱排序
func (s ScoreSet) Persons() []string {
	out := make([]string, 0, len(s.Scores))
	for p := range s.Scores {
		if p != PersonGeneral {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Personalizer 由一般分數推導個人分數
type Personalizer struct {
	profiles     []Profile
	availability DataAvailability

	mu        sync.Mutex
	rng       *rand.Rand
	jitterMin float64
	jitterMax float64
}

// PersonalizerOption 個人化選項
type PersonalizerOption func(*Personalizer)

// WithProfiles 替換個人設定
func WithProfiles(profiles []Profile) PersonalizerOption {
	return func(p *Personalizer) { p.profiles = profiles }
}

// WithAvailability 設定資料可用性來源
func WithAvailability(a DataAvailability) PersonalizerOption {
	return func(p *Personalizer) {
		if a != nil {
			p.availability = a
		}
	}
}

// WithRandSource 啟用隨機擾動，需提供固定種子的來源
func WithRandSource(src rand.Source) PersonalizerOption {
	return func(p *Personalizer) {
		if src != nil {
			p.rng = rand.New(src)
		}
	}
}

// WithJitter 設定擾動範圍
func WithJitter(min, max float64) PersonalizerOption {
	return func(p *Personalizer) {
		p.jitterMin, p.jitterMax = min, max
	}
}

// NewPersonalizer 創建個人化計算器；未提供隨機來源時不做擾動
func NewPersonalizer(opts ...PersonalizerOption) *Personalizer {
	p := &Personalizer{
		profiles:     DefaultProfiles(),
		availability: AllAvailable{},
		jitterMin:    0.9,
		jitterMax:    1.1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.jitterMin > p.jitterMax {
		p.jitterMin, p.jitterMax = p.jitterMax, p.jitterMin
	}
	return p
}

// Persons 依設定順序回傳個人名稱
func (p *Personalizer) Persons() []string {
	out := make([]string, len(p.profiles))
	for i, prof := range p.profiles {
		out[i] = prof.Name
	}
	return out
}

// Personalize 計算一般分數與每位使用者的分數
func (p *Personalizer) Personalize(general float64, ingredient string) ScoreSet {
	set := ScoreSet{Scores: map[string]float64{PersonGeneral: general}}
	lower := strings.ToLower(ingredient)

	for _, prof := range p.profiles {
		if !p.availability.HasData(prof.Name, ingredient) {
			continue
		}
		set.Scores[strings.ToLower(prof.Name)] = general * prof.multiplier(lower) * p.jitter()
	}
	return set
}

// jitter 回傳擾動倍率，共用的亂數來源以鎖保護
func (p *Personalizer) jitter() float64 {
	if p.rng == nil {
		return 1.0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.jitterMin + p.rng.Float64()*(p.jitterMax-p.jitterMin)
}
