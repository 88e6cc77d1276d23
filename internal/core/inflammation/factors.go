package inflammation

import (
	"sort"
	"strings"
)

// NutrientFactor 營養素的發炎權重，正值促發炎、負值抗發炎
type NutrientFactor struct {
	Key    string  `json:"nutrient_key"`
	Weight float64 `json:"weight"`
}

// FactorTable 營養素鍵到 DII 權重的對照表
type FactorTable map[string]float64

// Factors 依鍵排序回傳所有權重
func (t FactorTable) Factors() []NutrientFactor {
	out := make([]NutrientFactor, 0, len(t))
	for k, w := range t {
		out = append(out, NutrientFactor{Key: k, Weight: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// DefaultFactors 回傳 DII 研究中的營養素權重
func DefaultFactors() FactorTable {
	return FactorTable{
		"Alcohol (g)":         -0.278,
		"Vitamin B12 (mg)":    0.106,
		"Vitamin B6 (mg)":     -0.365,
		"β-Carotene (mg)":     -0.584,
		"Caffeine (g)":        -0.110,
		"Carbohydrate (g)":    0.097,
		"Cholesterol (mg)":    0.110,
		"Energy (kcal)":       0.180,
		"Eugenol (mg)":        -0.140,
		"Total fat (g)":       0.298,
		"Fibre (g)":           -0.663,
		"Folic acid (mg)":     -0.190,
		"Garlic (g)":          -0.412,
		"Ginger (g)":          -0.453,
		"Iron (mg)":           0.032,
		"Magnesium (mg)":      -0.484,
		"MUFA (g)":            -0.009,
		"Niacin (mg)":         -0.246,
		"n-3 Fatty acids (g)": -0.436,
		"n-6 Fatty acids (g)": -0.159,
		"Onion (g)":           -0.301,
		"Protein (g)":         0.021,
		"PUFA (g)":            -0.337,
		"Riboflavin (mg)":     -0.068,
		"Saffron (g)":         -0.140,
		"Saturated fat (g)":   0.373,
		"Selenium (mg)":       -0.191,
		"Thiamin (mg)":        -0.098,
		"Trans fat (g)":       0.229,
		"Turmeric (mg)":       -0.785,
		"Vitamin A (RE)":      -0.401,
		"Vitamin C (mg)":      -0.424,
		"Vitamin D (mg)":      -0.446,
		"Vitamin E (mg)":      -0.419,
		"Zinc (mg)":           -0.313,
		"Green/black tea (g)": -0.536,
		"Flavan-3-ol (mg)":    -0.415,
		"Flavones (mg)":       -0.616,
		"Flavonols (mg)":      -0.467,
		"Flavonones (mg)":     -0.250,
		"Anthocyanidins (mg)": -0.131,
		"Isoflavones (mg)":    -0.593,
		"Pepper (g)":          -0.131,
		"Thyme/oregano (mg)":  -0.102,
		"Rosemary (mg)":       -0.013,
	}
}

// AliasTable 營養成分表欄位名稱到 DII 營養素鍵的對照，未列出的名稱不計分
type AliasTable map[string]string

// DefaultAliases 回傳常見營養資料庫欄位名稱的對照
func DefaultAliases() AliasTable {
	return AliasTable{
		"Protein":                            "Protein (g)",
		"Total Fat":                          "Total fat (g)",
		"Carbohydrate":                       "Carbohydrate (g)",
		"Energy":                             "Energy (kcal)",
		"Alcohol":                            "Alcohol (g)",
		"Caffeine":                           "Caffeine (g)",
		"Fiber, total dietary":               "Fibre (g)",
		"Iron":                               "Iron (mg)",
		"Magnesium":                          "Magnesium (mg)",
		"Niacin":                             "Niacin (mg)",
		"Riboflavin":                         "Riboflavin (mg)",
		"Thiamin":                            "Thiamin (mg)",
		"Vitamin A, RAE":                     "Vitamin A (RE)",
		"Vitamin C":                          "Vitamin C (mg)",
		"Vitamin D (D2 + D3)":                "Vitamin D (mg)",
		"Vitamin E (alpha-tocopherol)":       "Vitamin E (mg)",
		"Vitamin B-6":                        "Vitamin B6 (mg)",
		"Vitamin B-12":                       "Vitamin B12 (mg)",
		"Zinc":                               "Zinc (mg)",
		"Selenium":                           "Selenium (mg)",
		"Cholesterol":                        "Cholesterol (mg)",
		"Fatty acids, total saturated":       "Saturated fat (g)",
		"Fatty acids, total monounsaturated": "MUFA (g)",
		"Fatty acids, total polyunsaturated": "PUFA (g)",
		"Carotene, beta":                     "β-Carotene (mg)",
		"Folic acid":                         "Folic acid (mg)",
	}
}

// SpecialIngredientRule 以名稱判定的香草、香料規則，命中時固定計入 1.0 單位
type SpecialIngredientRule struct {
	Substring   string `json:"substring"`
	NutrientKey string `json:"nutrient_key"`
}

// DefaultSpecialRules 回傳香草香料規則，順序固定
func DefaultSpecialRules() []SpecialIngredientRule {
	return []SpecialIngredientRule{
		{Substring: "garlic", NutrientKey: "Garlic (g)"},
		{Substring: "ginger", NutrientKey: "Ginger (g)"},
		{Substring: "onion", NutrientKey: "Onion (g)"},
		{Substring: "turmeric", NutrientKey: "Turmeric (mg)"},
		{Substring: "saffron", NutrientKey: "Saffron (g)"},
		{Substring: "black pepper", NutrientKey: "Pepper (g)"},
		{Substring: "pepper", NutrientKey: "Pepper (g)"},
		{Substring: "thyme", NutrientKey: "Thyme/oregano (mg)"},
		{Substring: "oregano", NutrientKey: "Thyme/oregano (mg)"},
		{Substring: "rosemary", NutrientKey: "Rosemary (mg)"},
		{Substring: "green tea", NutrientKey: "Green/black tea (g)"},
		{Substring: "black tea", NutrientKey: "Green/black tea (g)"},
		{Substring: "tea", NutrientKey: "Green/black tea (g)"},
	}
}

// unitRule 固定的單位換算規則
type unitRule struct {
	contains   []string // 原始營養素名稱需包含其一
	targetUnit string   // 目標鍵單位，空字串表示不限
	threshold  float64  // 大於此值才換算，0 表示一律換算
	divisor    float64
}

// unitRules 依序比對，第一條命中的規則生效
var unitRules = []unitRule{
	// 咖啡因 mg → g
	{contains: []string{"Caffeine"}, targetUnit: "g", divisor: 1000},
	// β-胡蘿蔔素 μg → mg
	{contains: []string{"Carotene, beta"}, divisor: 1000},
	// 維生素數值過大時視為 μg
	{contains: []string{"Vitamin A", "Vitamin C", "Vitamin D", "Vitamin E"}, threshold: 1000, divisor: 1000},
}

// ConvertUnits 將原始營養素數值換算為 DII 鍵所用的單位
func ConvertUnits(value float64, rawNutrient, nutrientKey string) float64 {
	for _, rule := range unitRules {
		if !containsAny(rawNutrient, rule.contains) {
			continue
		}
		if rule.targetUnit != "" && keyUnit(nutrientKey) != rule.targetUnit {
			return value
		}
		if rule.threshold > 0 && value <= rule.threshold {
			return value
		}
		return value / rule.divisor
	}
	return value
}

// keyUnit 取出鍵名括號中的單位，例如 "Caffeine (g)" → "g"
func keyUnit(key string) string {
	open := strings.LastIndex(key, "(")
	end := strings.LastIndex(key, ")")
	if open == -1 || end <= open {
		return ""
	}
	return strings.TrimSpace(key[open+1 : end])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
