package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// MealType 餐別
type MealType string

const (
	Breakfast MealType = "Breakfast"
	Lunch     MealType = "Lunch"
	Dinner    MealType = "Dinner"
)

// MealTypes 一天中的固定餐別順序
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

// ParseMealType 不分大小寫解析餐別
func ParseMealType(s string) (MealType, bool) {
	for _, m := range MealTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, true
		}
	}
	return "", false
}

// RecipeID 食譜 ID，JSON 中可為數字或字串
type RecipeID string

// UnmarshalJSON 接受數字或字串
func (id *RecipeID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecipeID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("recipe id must be a number or string: %w", err)
	}
	*id = RecipeID(n.String())
	return nil
}

// MarshalJSON 整數 ID 輸出為數字
func (id RecipeID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Ingredient 食譜中的一項食材
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Recipe 食譜，載入後唯讀
type Recipe struct {
	ID               RecipeID     `json:"id"`
	Title            string       `json:"title"`
	Ingredients      []Ingredient `json:"ingredients"`
	MealTypes        []MealType   `json:"meal_type"`
	PrepTimeMinutes  int          `json:"prep_time_minutes"`
	TotalTimeMinutes int          `json:"total_time_minutes"`
	Servings         int          `json:"servings"`
}

// HasMealType 是否標記為指定餐別
func (r *Recipe) HasMealType(m MealType) bool {
	for _, t := range r.MealTypes {
		if t == m {
			return true
		}
	}
	return false
}

// recipeDocument 兩種食譜檔格式
type recipeDocument struct {
	Recipes  []rawRecipe `json:"recipes"`
	Database *struct {
		Recipes []rawRecipe `json:"recipes"`
	} `json:"popular_recipes_database"`
}

type rawRecipe struct {
	Recipe
	MealTypes []string `json:"meal_type"`
}

// Catalog 食譜目錄
type Catalog struct {
	recipes []Recipe
	index   map[RecipeID]int
}

// NewCatalog 由食譜清單建立目錄
func NewCatalog(recipes []Recipe) *Catalog {
	c := &Catalog{index: make(map[RecipeID]int, len(recipes))}
	for _, r := range recipes {
		if _, dup := c.index[r.ID]; dup {
			common.LogWarn("重複的食譜 ID，保留第一筆", zap.String("id", string(r.ID)), zap.String("title", r.Title))
			continue
		}
		c.index[r.ID] = len(c.recipes)
		c.recipes = append(c.recipes, r)
	}
	return c
}

// LoadCatalog 解析食譜 JSON，接受 {"recipes":[...]} 或 {"popular_recipes_database":{"recipes":[...]}}
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc recipeDocument
	if err := common.DecodeJSON(r, &doc); err != nil {
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("decode recipe catalog: %w", err))
	}

	raws := doc.Recipes
	if raws == nil && doc.Database != nil {
		raws = doc.Database.Recipes
	}
	if raws == nil {
		return nil, common.Wrap(common.ErrDataUnavailable, fmt.Errorf("recipe catalog has no recipes array"))
	}

	recipes := make([]Recipe, 0, len(raws))
	for i, raw := range raws {
		rec := raw.Recipe
		rec.MealTypes = nil
		for _, s := range raw.MealTypes {
			m, ok := ParseMealType(s)
			if !ok {
				common.LogDebug("忽略未知餐別", zap.String("recipe", rec.Title), zap.String("meal_type", s))
				continue
			}
			rec.MealTypes = append(rec.MealTypes, m)
		}
		if rec.ID == "" {
			rec.ID = RecipeID(strconv.Itoa(i + 1))
		}
		recipes = append(recipes, rec)
	}

	c := NewCatalog(recipes)
	common.LogInfo("食譜目錄已載入", zap.Int("recipes", c.Len()))
	return c, nil
}

// Recipes 依檔案順序回傳食譜
func (c *Catalog) Recipes() []Recipe {
	out := make([]Recipe, len(c.recipes))
	copy(out, c.recipes)
	return out
}

// Get 以 ID 取得食譜
func (c *Catalog) Get(id RecipeID) (Recipe, bool) {
	i, ok := c.index[id]
	if !ok {
		return Recipe{}, false
	}
	return c.recipes[i], true
}

// Len 回傳食譜數
func (c *Catalog) Len() int {
	return len(c.recipes)
}
