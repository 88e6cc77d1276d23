package recipe

import (
	"strings"
	"unicode/utf8"

	"inflammation-planner/internal/core/inflammation"
)

// MatchKind 比對方式
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchSubstring MatchKind = "substring"
	MatchAlias     MatchKind = "alias"
)

// aliasConfidence 別名比對的固定信心值
const aliasConfidence = 0.6

// Match 食材比對結果
type Match struct {
	Key        string    `json:"matched_as"`
	Kind       MatchKind `json:"match_kind"`
	Confidence float64   `json:"confidence"`
}

// DefaultIngredientAliases 食譜食材名稱到分數表鍵的對照
func DefaultIngredientAliases() map[string]string {
	return map[string]string{
		"ground beef":       "beef",
		"chicken breast":    "chicken",
		"all-purpose flour": "flour",
		"canned tomatoes":   "tomatoes",
		"fresh basil":       "basil",
		"romaine lettuce":   "lettuce",
		"hamburger buns":    "bread",
		"egg noodles":       "pasta",
		"heavy cream":       "cream",
		"vegetable oil":     "oil",
	}
}

// Matcher 將食譜食材名稱對應到分數表的鍵
//
// 依序嘗試：完全相符、雙向子字串（取較長的被包含字串，同長度依表格順序）、別名表。
type Matcher struct {
	keys    []string
	keySet  map[string]struct{}
	aliases map[string]string
}

// NewMatcher 創建比對器；keys 應依表格檔案順序
func NewMatcher(keys []string, aliases map[string]string) *Matcher {
	m := &Matcher{
		keys:    make([]string, 0, len(keys)),
		keySet:  make(map[string]struct{}, len(keys)),
		aliases: make(map[string]string, len(aliases)),
	}
	for _, k := range keys {
		k = inflammation.NormalizeKey(k)
		if k == "" {
			continue
		}
		if _, dup := m.keySet[k]; dup {
			continue
		}
		m.keySet[k] = struct{}{}
		m.keys = append(m.keys, k)
	}
	for from, to := range aliases {
		m.aliases[inflammation.NormalizeKey(from)] = inflammation.NormalizeKey(to)
	}
	return m
}

// Match 比對食材名稱，找不到時回傳 false
func (m *Matcher) Match(name string) (Match, bool) {
	name = inflammation.NormalizeKey(name)
	if name == "" {
		return Match{}, false
	}

	if _, ok := m.keySet[name]; ok {
		return Match{Key: name, Kind: MatchExact, Confidence: 1.0}, true
	}

	if match, ok := m.matchSubstring(name); ok {
		return match, true
	}

	if target, ok := m.aliases[name]; ok {
		if _, exists := m.keySet[target]; exists {
			return Match{Key: target, Kind: MatchAlias, Confidence: aliasConfidence}, true
		}
	}

	return Match{}, false
}

// matchSubstring 雙向子字串比對
func (m *Matcher) matchSubstring(name string) (Match, bool) {
	nameLen := utf8.RuneCountInString(name)

	best := Match{}
	bestContained := 0
	for _, key := range m.keys {
		keyLen := utf8.RuneCountInString(key)

		var contained, longer int
		switch {
		case keyLen <= nameLen && strings.Contains(name, key):
			contained, longer = keyLen, nameLen
		case keyLen > nameLen && strings.Contains(key, name):
			contained, longer = nameLen, keyLen
		default:
			continue
		}

		// 嚴格大於：同長度保留表格中較早出現者
		if contained > bestContained {
			bestContained = contained
			best = Match{
				Key:        key,
				Kind:       MatchSubstring,
				Confidence: float64(contained) / float64(longer),
			}
		}
	}
	return best, bestContained > 0
}
