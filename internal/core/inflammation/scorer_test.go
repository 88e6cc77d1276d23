package inflammation

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestScoreWeightedSum(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(WithAliases(AliasTable{
		"Energy": "Energy (kcal)",
		"Fibre":  "Fibre (g)",
	}))
	result := scorer.Score("Oat bran", NutrientProfile{"Energy": 200, "Fibre": 5})

	if !almostEqual(result.Score, 32.685) {
		t.Fatalf("expected 32.685, got %v", result.Score)
	}
	if result.MatchedCount != 2 || result.TotalCount != 2 {
		t.Fatalf("expected 2/2 matched, got %d/%d", result.MatchedCount, result.TotalCount)
	}
	if result.MatchPercentage != 100 {
		t.Fatalf("expected 100%% match, got %v", result.MatchPercentage)
	}
	fibre := result.Contributions["Fibre (g)"]
	if !almostEqual(fibre.Contribution, -3.315) || fibre.Factor != -0.663 {
		t.Fatalf("unexpected fibre contribution: %+v", fibre)
	}
}

func TestScoreSpecialIngredientAddsFixedUnit(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(WithAliases(AliasTable{"Garlic": "Garlic (g)"}))

	result := scorer.Score("Fresh Garlic, minced", NutrientProfile{})
	if !almostEqual(result.Score, -0.412) {
		t.Fatalf("expected -0.412 from garlic rule, got %v", result.Score)
	}
	if result.SpecialMatches != 1 || result.MatchedCount != 0 {
		t.Fatalf("expected 1 special and 0 measured, got %d/%d", result.SpecialMatches, result.MatchedCount)
	}
	if result.MatchPercentage != 0 {
		t.Fatalf("expected 0%% match with no nutrient rows, got %v", result.MatchPercentage)
	}

	// 規則與實測值相加
	withMeasured := scorer.Score("Fresh Garlic, minced", NutrientProfile{"Garlic": 2})
	if !almostEqual(withMeasured.Score, -0.412+2*-0.412) {
		t.Fatalf("expected additive garlic contributions, got %v", withMeasured.Score)
	}
	c := withMeasured.Contributions["Garlic (g)"]
	if !almostEqual(c.Contribution, 3*-0.412) {
		t.Fatalf("expected merged contribution, got %+v", c)
	}
}

func TestScoreMultipleSpecialRulesSum(t *testing.T) {
	t.Parallel()

	result := NewScorer().Score("Ground Black Pepper", NutrientProfile{})
	// "black pepper" 與 "pepper" 皆命中
	if !almostEqual(result.Score, 2*-0.131) {
		t.Fatalf("expected two pepper contributions, got %v", result.Score)
	}
	if result.SpecialMatches != 2 {
		t.Fatalf("expected 2 special matches, got %d", result.SpecialMatches)
	}
}

func TestScoreEmptyProfile(t *testing.T) {
	t.Parallel()

	result := NewScorer().Score("Rice, white", NutrientProfile{})
	if result.Score != 0 || result.MatchedCount != 0 || result.MatchPercentage != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if result.NotFound {
		t.Fatalf("empty profile must not be reported as not found")
	}
}

func TestScoreAbsentProfile(t *testing.T) {
	t.Parallel()

	result := NewScorer().Score("Unknown", nil)
	if !result.NotFound || result.Score != 0 {
		t.Fatalf("expected not-found zero result, got %+v", result)
	}
}

func TestScoreIgnoresUnmappedNutrients(t *testing.T) {
	t.Parallel()

	result := NewScorer().Score("Apple", NutrientProfile{
		"Protein":       1,
		"Water":         80,
		"Sugars, total": 10,
	})
	if result.MatchedCount != 1 || result.TotalCount != 3 {
		t.Fatalf("expected 1/3 matched, got %d/%d", result.MatchedCount, result.TotalCount)
	}
	if result.MatchPercentage < 0 || result.MatchPercentage > 100 {
		t.Fatalf("match percentage out of range: %v", result.MatchPercentage)
	}
	if !almostEqual(result.Score, 0.021) {
		t.Fatalf("expected protein-only score 0.021, got %v", result.Score)
	}
}

func TestConvertUnits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value float64
		raw   string
		key   string
		want  float64
	}{
		{"caffeine mg to g", 80, "Caffeine", "Caffeine (g)", 0.08},
		{"caffeine other unit", 80, "Caffeine", "Caffeine (mg)", 80},
		{"beta carotene ug to mg", 500, "Carotene, beta", "β-Carotene (mg)", 0.5},
		{"vitamin c large", 2000, "Vitamin C", "Vitamin C (mg)", 2},
		{"vitamin c small", 60, "Vitamin C", "Vitamin C (mg)", 60},
		{"vitamin a at threshold", 1000, "Vitamin A, RAE", "Vitamin A (RE)", 1000},
		{"passthrough", 12, "Protein", "Protein (g)", 12},
	}
	for _, tc := range tests {
		if got := ConvertUnits(tc.value, tc.raw, tc.key); !almostEqual(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFactorsSortedAndComplete(t *testing.T) {
	t.Parallel()

	factors := DefaultFactors().Factors()
	if len(factors) != len(DefaultFactors()) {
		t.Fatalf("expected %d factors, got %d", len(DefaultFactors()), len(factors))
	}
	for i := 1; i < len(factors); i++ {
		if factors[i-1].Key >= factors[i].Key {
			t.Fatalf("factors not sorted at %d: %q >= %q", i, factors[i-1].Key, factors[i].Key)
		}
	}
	for raw, key := range DefaultAliases() {
		if _, ok := DefaultFactors()[key]; !ok {
			t.Fatalf("alias %q maps to unknown key %q", raw, key)
		}
	}
	for _, rule := range DefaultSpecialRules() {
		if _, ok := DefaultFactors()[rule.NutrientKey]; !ok {
			t.Fatalf("special rule %q maps to unknown key %q", rule.Substring, rule.NutrientKey)
		}
	}
}
