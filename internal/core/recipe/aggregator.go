package recipe

import (
	"context"
	"encoding/json"
	"strings"

	"inflammation-planner/internal/core/inflammation"
	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// quantityBasis 分數以每 100 單位數量為基準
const quantityBasis = 100.0

// UnmatchedReason 食材未計分的原因
type UnmatchedReason string

const (
	ReasonNoMatch         UnmatchedReason = "no match"
	ReasonNoDataForPerson UnmatchedReason = "no data for person"
)

// ScoreTable 食材分數表
type ScoreTable interface {
	Keys() []string
	Lookup(key string) (inflammation.ScoreSet, bool)
	Persons() []string
}

// UnmatchedIngredient 未計分的食材
type UnmatchedIngredient struct {
	Name   string          `json:"name"`
	Reason UnmatchedReason `json:"reason"`
}

// IngredientDetail 已計分食材的明細
type IngredientDetail struct {
	Name          string    `json:"name"`
	MatchedAs     string    `json:"matched_as"`
	MatchKind     MatchKind `json:"match_kind"`
	Confidence    float64   `json:"confidence"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit,omitempty"`
	Inflammation  float64   `json:"inflammation_score"`
	WeightedScore float64   `json:"weighted_score"`
}

// Score 一道食譜對某人的發炎分數
type Score struct {
	RecipeID        RecipeID              `json:"recipe_id"`
	Title           string                `json:"recipe_title"`
	Person          string                `json:"person"`
	Total           float64               `json:"total_inflammation_score"`
	Average         float64               `json:"average_inflammation_score"`
	Matched         int                   `json:"matched_ingredients"`
	TotalCount      int                   `json:"total_ingredients"`
	MatchPercentage float64               `json:"match_percentage"`
	Unmatched       []UnmatchedIngredient `json:"unmatched_ingredients"`
	Details         []IngredientDetail    `json:"ingredient_details"`
}

// MarshalJSON 輸出時才四捨五入
func (s Score) MarshalJSON() ([]byte, error) {
	type plain Score
	out := plain(s)
	out.Total = common.Round(s.Total, 3)
	out.Average = common.Round(s.Average, 3)
	out.MatchPercentage = common.Round(s.MatchPercentage, 1)
	if out.Unmatched == nil {
		out.Unmatched = []UnmatchedIngredient{}
	}
	if out.Details == nil {
		out.Details = []IngredientDetail{}
	}
	return json.Marshal(out)
}

// Scorer 計算食譜分數，建立後唯讀
type Scorer struct {
	table   ScoreTable
	matcher *Matcher
}

// NewScorer 創建食譜計分器；aliases 為 nil 時使用預設對照
func NewScorer(table ScoreTable, aliases map[string]string) *Scorer {
	if aliases == nil {
		aliases = DefaultIngredientAliases()
	}
	return &Scorer{
		table:   table,
		matcher: NewMatcher(table.Keys(), aliases),
	}
}

// Matcher 回傳食材比對器
func (s *Scorer) Matcher() *Matcher {
	return s.matcher
}

// Persons 回傳可計分的對象：general 加上分數表中的個人
func (s *Scorer) Persons() []string {
	return append([]string{inflammation.PersonGeneral}, s.table.Persons()...)
}

// ScoreRecipe 計算食譜對某人的分數；無法比對的食材記錄於 Unmatched，不會失敗
func (s *Scorer) ScoreRecipe(recipe Recipe, person string) Score {
	person = strings.ToLower(strings.TrimSpace(person))
	if person == "" {
		person = inflammation.PersonGeneral
	}

	score := Score{
		RecipeID:   recipe.ID,
		Title:      recipe.Title,
		Person:     person,
		TotalCount: len(recipe.Ingredients),
	}

	for _, ing := range recipe.Ingredients {
		match, ok := s.matcher.Match(ing.Name)
		if !ok {
			score.Unmatched = append(score.Unmatched, UnmatchedIngredient{Name: ing.Name, Reason: ReasonNoMatch})
			continue
		}
		set, _ := s.table.Lookup(match.Key)
		value, ok := set.Get(person)
		if !ok {
			score.Unmatched = append(score.Unmatched, UnmatchedIngredient{Name: ing.Name, Reason: ReasonNoDataForPerson})
			continue
		}

		weighted := value * (ing.Quantity / quantityBasis)
		score.Total += weighted
		score.Matched++
		score.Details = append(score.Details, IngredientDetail{
			Name:          ing.Name,
			MatchedAs:     match.Key,
			MatchKind:     match.Kind,
			Confidence:    match.Confidence,
			Quantity:      ing.Quantity,
			Unit:          ing.Unit,
			Inflammation:  value,
			WeightedScore: weighted,
		})
	}

	if score.Matched > 0 {
		score.Average = score.Total / float64(score.Matched)
	}
	if score.TotalCount > 0 {
		score.MatchPercentage = float64(score.Matched) / float64(score.TotalCount) * 100
	}
	return score
}

// ScoreAllPeople 計算食譜對所有對象的分數
func (s *Scorer) ScoreAllPeople(recipe Recipe) map[string]Score {
	persons := s.Persons()
	out := make(map[string]Score, len(persons))
	for _, p := range persons {
		out[p] = s.ScoreRecipe(recipe, p)
	}
	return out
}

// ScoreCatalog 並行計算多道食譜，結果順序與輸入相同
func (s *Scorer) ScoreCatalog(ctx context.Context, recipes []Recipe, person string, workers int) ([]Score, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Score, len(recipes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range recipes {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.ScoreRecipe(recipes[i], person)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	common.LogDebug("食譜計分完成", zap.String("person", person), zap.Int("recipes", len(recipes)), zap.Int("workers", workers))
	return results, nil
}
