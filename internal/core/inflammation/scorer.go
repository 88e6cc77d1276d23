package inflammation

import (
	"strings"
)

// ContributionSource 計分來源
type ContributionSource string

const (
	SourceSpecial  ContributionSource = "special"
	SourceMeasured ContributionSource = "measured"
)

// Contribution 單一營養素鍵對 DII 的貢獻
type Contribution struct {
	Source         ContributionSource `json:"source"`
	RawNutrient    string             `json:"raw_nutrient,omitempty"`
	Value          float64            `json:"value"`
	ConvertedValue float64            `json:"converted_value"`
	Factor         float64            `json:"dii_factor"`
	Contribution   float64            `json:"contribution"`
}

// DIIResult 單一食材的 DII 計算結果
type DIIResult struct {
	Ingredient      string                  `json:"ingredient"`
	Score           float64                 `json:"dii_score"`
	MatchedCount    int                     `json:"matched_nutrients"`
	SpecialMatches  int                     `json:"special_matches"`
	TotalCount      int                     `json:"total_nutrients"`
	MatchPercentage float64                 `json:"match_percentage"`
	Contributions   map[string]Contribution `json:"nutrient_contributions"`
	NotFound        bool                    `json:"not_found,omitempty"`
}

// Scorer DII 計分器，所有表格在建立後唯讀，可並行使用
type Scorer struct {
	factors  FactorTable
	aliases  AliasTable
	specials []SpecialIngredientRule
}

// ScorerOption 計分器選項
type ScorerOption func(*Scorer)

// WithFactors 替換營養素權重表
func WithFactors(f FactorTable) ScorerOption {
	return func(s *Scorer) { s.factors = f }
}

// WithAliases 替換營養素名稱對照表
func WithAliases(a AliasTable) ScorerOption {
	return func(s *Scorer) { s.aliases = a }
}

// WithSpecialRules 替換香草香料規則
func WithSpecialRules(rules []SpecialIngredientRule) ScorerOption {
	return func(s *Scorer) { s.specials = rules }
}

// NewScorer 創建 DII 計分器，預設使用內建表格
func NewScorer(opts ...ScorerOption) *Scorer {
	s := &Scorer{
		factors:  DefaultFactors(),
		aliases:  DefaultAliases(),
		specials: DefaultSpecialRules(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score 計算食材的 DII 分數；profile 為 nil 時回傳標記為找不到的零分結果
func (s *Scorer) Score(ingredient string, profile NutrientProfile) DIIResult {
	result := DIIResult{
		Ingredient:    ingredient,
		Contributions: make(map[string]Contribution),
	}
	if profile == nil {
		result.NotFound = true
		return result
	}

	// 香草香料：名稱命中即固定計入 1.0 單位
	lower := strings.ToLower(ingredient)
	for _, rule := range s.specials {
		if rule.Substring == "" || !strings.Contains(lower, rule.Substring) {
			continue
		}
		factor, ok := s.factors[rule.NutrientKey]
		if !ok {
			continue
		}
		result.add(rule.NutrientKey, Contribution{
			Source:         SourceSpecial,
			Value:          1.0,
			ConvertedValue: 1.0,
			Factor:         factor,
			Contribution:   1.0 * factor,
		})
		result.SpecialMatches++
	}

	// 一般營養素
	for raw, value := range profile {
		key, ok := s.aliases[raw]
		if !ok {
			continue
		}
		factor, ok := s.factors[key]
		if !ok {
			continue
		}
		converted := ConvertUnits(value, raw, key)
		result.add(key, Contribution{
			Source:         SourceMeasured,
			RawNutrient:    raw,
			Value:          value,
			ConvertedValue: converted,
			Factor:         factor,
			Contribution:   converted * factor,
		})
		result.MatchedCount++
	}

	result.TotalCount = len(profile)
	if result.TotalCount > 0 {
		result.MatchPercentage = float64(result.MatchedCount) / float64(result.TotalCount) * 100
	}
	return result
}

// add 累加貢獻；同一鍵多次命中時數值相加
func (r *DIIResult) add(key string, c Contribution) {
	r.Score += c.Contribution
	if prev, ok := r.Contributions[key]; ok {
		prev.Value += c.Value
		prev.ConvertedValue += c.ConvertedValue
		prev.Contribution += c.Contribution
		if prev.Source != c.Source {
			prev.Source = SourceSpecial + "+" + SourceMeasured
		}
		if prev.RawNutrient == "" {
			prev.RawNutrient = c.RawNutrient
		}
		r.Contributions[key] = prev
		return
	}
	r.Contributions[key] = c
}

// ScoreStore 依序計算整張營養成分表
func (s *Scorer) ScoreStore(store *NutrientStore) []DIIResult {
	names := store.Ingredients()
	results := make([]DIIResult, 0, len(names))
	for _, name := range names {
		profile, _ := store.Lookup(name)
		results = append(results, s.Score(name, profile))
	}
	return results
}
