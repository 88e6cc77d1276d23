package menu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"inflammation-planner/internal/core/inflammation"
	"inflammation-planner/internal/core/recipe"
	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// Days 一週的固定順序
var Days = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Goal 最佳化目標
type Goal string

const (
	MinimizeInflammation Goal = "minimize_inflammation"
	MaximizeInflammation Goal = "maximize_inflammation"
)

// ParseGoal 解析最佳化目標，空字串視為最小化
func ParseGoal(s string) (Goal, error) {
	switch Goal(strings.ToLower(strings.TrimSpace(s))) {
	case "", MinimizeInflammation, "minimize", "min":
		return MinimizeInflammation, nil
	case MaximizeInflammation, "maximize", "max":
		return MaximizeInflammation, nil
	default:
		return "", common.Wrap(common.ErrInvalidRequest, fmt.Errorf("unknown optimization goal %q", s))
	}
}

// Slot 一個餐次
type Slot struct {
	Recipe            recipe.Recipe `json:"recipe"`
	InflammationScore float64       `json:"inflammation_score"`
	PrepTime          int           `json:"prep_time"`
	TotalTime         int           `json:"total_time"`
	Servings          int           `json:"servings"`
	Fallback          bool          `json:"fallback,omitempty"`
}

// MarshalJSON 輸出時才四捨五入
func (s Slot) MarshalJSON() ([]byte, error) {
	type plain Slot
	out := plain(s)
	out.InflammationScore = common.Round(s.InflammationScore, 3)
	return json.Marshal(out)
}

// DayPlan 一天的三餐，依餐別順序
type DayPlan struct {
	Day   string
	Meals map[recipe.MealType]Slot
}

// Week 七天菜單，依星期順序
type Week []DayPlan

// MarshalJSON 依星期與餐別順序輸出物件
func (w Week) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, day := range w {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(day.Day)
		buf.Write(key)
		buf.WriteString(":{")
		first := true
		for _, meal := range recipe.MealTypes {
			slot, ok := day.Meals[meal]
			if !ok {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			mealKey, _ := json.Marshal(string(meal))
			buf.Write(mealKey)
			buf.WriteByte(':')
			data, err := json.Marshal(slot)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Statistics 一週統計
type Statistics struct {
	TotalWeeklyScore  float64 `json:"total_weekly_inflammation_score"`
	AverageDailyScore float64 `json:"average_daily_inflammation_score"`
	TotalMeals        int     `json:"total_meals"`
	FallbackMeals     int     `json:"fallback_meals"`
	DistinctRecipes   int     `json:"distinct_recipes"`
}

// MarshalJSON 輸出時才四捨五入
func (s Statistics) MarshalJSON() ([]byte, error) {
	type plain Statistics
	out := plain(s)
	out.TotalWeeklyScore = common.Round(s.TotalWeeklyScore, 3)
	out.AverageDailyScore = common.Round(s.AverageDailyScore, 3)
	return json.Marshal(out)
}

// Menu 一份週菜單
type Menu struct {
	Person     string     `json:"person"`
	Goal       Goal       `json:"optimization_goal"`
	Week       Week       `json:"weekly_menu"`
	Statistics Statistics `json:"statistics"`
}

// Slots 依星期與餐別順序走訪每個餐次
func (m *Menu) Slots(fn func(day string, meal recipe.MealType, slot Slot)) {
	for _, d := range m.Week {
		for _, meal := range recipe.MealTypes {
			if slot, ok := d.Meals[meal]; ok {
				fn(d.Day, meal, slot)
			}
		}
	}
}

// Planner 週菜單規劃器
type Planner struct {
	scorer  *recipe.Scorer
	workers int
}

// NewPlanner 創建週菜單規劃器
func NewPlanner(scorer *recipe.Scorer, workers int) *Planner {
	if workers <= 0 {
		workers = 1
	}
	return &Planner{scorer: scorer, workers: workers}
}

type candidate struct {
	recipe recipe.Recipe
	score  float64
}

// Plan 以貪婪法填滿 7×3 餐次
//
// 每餐先從尚未使用、且標記該餐別的食譜中取分數最佳者並移出候選池；
// 沒有符合者時，以共用游標輪替剩餘候選池；候選池用盡後輪替完整排序清單。
func (p *Planner) Plan(ctx context.Context, recipes []recipe.Recipe, person string, goal Goal) (*Menu, error) {
	if len(recipes) == 0 {
		return nil, common.Wrap(common.ErrEmptyCatalog, fmt.Errorf("no recipes to plan for %s", person))
	}
	if goal == "" {
		goal = MinimizeInflammation
	}

	scores, err := p.scorer.ScoreCatalog(ctx, recipes, person, p.workers)
	if err != nil {
		return nil, err
	}

	sorted := make([]candidate, len(recipes))
	for i := range recipes {
		sorted[i] = candidate{recipe: recipes[i], score: scores[i].Average}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if goal == MaximizeInflammation {
			return sorted[i].score > sorted[j].score
		}
		return sorted[i].score < sorted[j].score
	})

	pool := make([]candidate, len(sorted))
	copy(pool, sorted)

	menu := &Menu{
		Person: strings.ToLower(strings.TrimSpace(person)),
		Goal:   goal,
		Week:   make(Week, 0, len(Days)),
	}
	if menu.Person == "" {
		menu.Person = inflammation.PersonGeneral
	}

	cursor := 0
	used := make(map[recipe.RecipeID]struct{})
	for _, day := range Days {
		plan := DayPlan{Day: day, Meals: make(map[recipe.MealType]Slot, len(recipe.MealTypes))}
		for _, meal := range recipe.MealTypes {
			var chosen candidate
			fallback := false

			if i := indexOfMeal(pool, meal); i >= 0 {
				chosen = pool[i]
				pool = append(pool[:i], pool[i+1:]...)
			} else {
				fallback = true
				if len(pool) > 0 {
					chosen = pool[cursor%len(pool)]
				} else {
					chosen = sorted[cursor%len(sorted)]
				}
				cursor++
				common.LogDebug("餐別無可用食譜，使用輪替",
					zap.String("day", day),
					zap.String("meal", string(meal)),
					zap.String("recipe", chosen.recipe.Title),
				)
			}

			plan.Meals[meal] = Slot{
				Recipe:            chosen.recipe,
				InflammationScore: chosen.score,
				PrepTime:          chosen.recipe.PrepTimeMinutes,
				TotalTime:         chosen.recipe.TotalTimeMinutes,
				Servings:          chosen.recipe.Servings,
				Fallback:          fallback,
			}
			used[chosen.recipe.ID] = struct{}{}
			menu.Statistics.TotalWeeklyScore += chosen.score
			menu.Statistics.TotalMeals++
			if fallback {
				menu.Statistics.FallbackMeals++
			}
		}
		menu.Week = append(menu.Week, plan)
	}

	menu.Statistics.AverageDailyScore = menu.Statistics.TotalWeeklyScore / float64(len(Days))
	menu.Statistics.DistinctRecipes = len(used)

	common.LogInfo("週菜單已產生",
		zap.String("person", menu.Person),
		zap.String("goal", string(goal)),
		zap.Int("recipes", len(recipes)),
		zap.Int("distinct", len(used)),
		zap.Int("fallback_meals", menu.Statistics.FallbackMeals),
	)
	return menu, nil
}

// indexOfMeal 回傳候選池中第一個標記該餐別的位置
func indexOfMeal(pool []candidate, meal recipe.MealType) int {
	for i := range pool {
		if pool[i].recipe.HasMealType(meal) {
			return i
		}
	}
	return -1
}
