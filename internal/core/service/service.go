package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"inflammation-planner/internal/core/cache"
	"inflammation-planner/internal/core/inflammation"
	"inflammation-planner/internal/core/menu"
	"inflammation-planner/internal/core/recipe"
	"inflammation-planner/internal/infrastructure/config"
	"inflammation-planner/internal/infrastructure/source"
	"inflammation-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// 快取命名空間
const (
	cacheNamespaceMenu     = "menu"
	cacheNamespaceShopping = "shopping"
)

// Service 應用服務，持有載入後的唯讀資料表
type Service struct {
	config       *config.Config
	loader       *source.Loader
	cache        cache.Store
	dii          *inflammation.Scorer
	personalizer *inflammation.Personalizer

	mu    sync.RWMutex
	state *state
}

// state 一次載入的資料表
type state struct {
	nutrients *inflammation.NutrientStore
	table     *inflammation.Table
	catalog   *recipe.Catalog
	scorer    *recipe.Scorer
	planner   *menu.Planner
	loadedAt  time.Time
}

// IngredientScore 單一食材的查詢結果
type IngredientScore struct {
	Query  string                  `json:"query"`
	Match  recipe.Match            `json:"match"`
	Scores map[string]float64      `json:"scores"`
	DII    *inflammation.DIIResult `json:"dii,omitempty"`
}

// NutrientScore 以營養素直接計算的結果
type NutrientScore struct {
	Result inflammation.DIIResult `json:"result"`
	Scores map[string]float64     `json:"scores"`
}

// NewService 創建應用服務；store 可為 nil
func NewService(cfg *config.Config, loader *source.Loader, store cache.Store) *Service {
	return &Service{
		config:       cfg,
		loader:       loader,
		cache:        store,
		dii:          inflammation.NewScorer(),
		personalizer: inflammation.NewPersonalizer(PersonalizerOptions(cfg)...),
	}
}

// PersonalizerOptions 依設定產生個人化選項；啟用擾動時使用固定種子
func PersonalizerOptions(cfg *config.Config) []inflammation.PersonalizerOption {
	var opts []inflammation.PersonalizerOption
	if cfg.Personalization.Jitter {
		opts = append(opts,
			inflammation.WithRandSource(rand.NewSource(cfg.Personalization.Seed)),
			inflammation.WithJitter(cfg.Personalization.JitterMin, cfg.Personalization.JitterMax),
		)
	}
	return opts
}

// Load 載入所有資料表；發炎表不存在且設定了營養成分表時，改由營養成分表產生
func (s *Service) Load(ctx context.Context) error {
	st := &state{}

	if s.config.Data.NutrientCSV != "" {
		nutrients, err := s.loadNutrients(ctx)
		if err != nil {
			return err
		}
		st.nutrients = nutrients
	}

	personalizer := s.currentPersonalizer()
	if s.config.Data.AvailabilityCSV != "" {
		availability, err := s.loadAvailability(ctx)
		if err != nil {
			return err
		}
		personalizer = inflammation.NewPersonalizer(append(PersonalizerOptions(s.config), inflammation.WithAvailability(availability))...)
	}

	table, err := s.loadTable(ctx, st.nutrients, personalizer)
	if err != nil {
		return err
	}
	st.table = table

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return err
	}
	st.catalog = catalog

	st.scorer = recipe.NewScorer(table, nil)
	st.planner = menu.NewPlanner(st.scorer, s.config.Planner.Workers)
	st.loadedAt = time.Now()

	s.mu.Lock()
	s.state = st
	s.personalizer = personalizer
	s.mu.Unlock()

	common.LogInfo("資料表已就緒",
		zap.Int("ingredients", table.Len()),
		zap.Strings("persons", table.Persons()),
		zap.Int("recipes", catalog.Len()),
	)
	return nil
}

func (s *Service) loadNutrients(ctx context.Context) (*inflammation.NutrientStore, error) {
	uri := s.config.Data.NutrientCSV
	start := time.Now()
	rc, err := s.loader.Open(ctx, uri)
	if err != nil {
		common.LogLoad("nutrients", uri, 0, time.Since(start), err)
		return nil, err
	}
	defer rc.Close()

	store, err := inflammation.ReadNutrientStore(rc)
	rows := 0
	if store != nil {
		rows = store.Len()
	}
	common.LogLoad("nutrients", uri, rows, time.Since(start), err)
	return store, err
}

func (s *Service) loadAvailability(ctx context.Context) (inflammation.AvailabilitySet, error) {
	uri := s.config.Data.AvailabilityCSV
	start := time.Now()
	rc, err := s.loader.Open(ctx, uri)
	if err != nil {
		common.LogLoad("availability", uri, 0, time.Since(start), err)
		return nil, err
	}
	defer rc.Close()

	set, err := inflammation.ReadAvailability(rc)
	common.LogLoad("availability", uri, len(set), time.Since(start), err)
	return set, err
}

func (s *Service) loadTable(ctx context.Context, nutrients *inflammation.NutrientStore, personalizer *inflammation.Personalizer) (*inflammation.Table, error) {
	uri := s.config.Data.InflammationCSV
	if nutrients != nil && !s.loader.Exists(uri) {
		gen := inflammation.NewGenerator(s.dii, personalizer)
		rows, err := gen.Generate(nutrients)
		if err != nil {
			return nil, err
		}
		common.LogInfo("發炎表由營養成分表產生", zap.Int("rows", len(rows)))
		return inflammation.NewTable(rows, gen.Persons()), nil
	}

	start := time.Now()
	rc, err := s.loader.Open(ctx, uri)
	if err != nil {
		common.LogLoad("inflammation", uri, 0, time.Since(start), err)
		return nil, err
	}
	defer rc.Close()

	table, err := inflammation.ReadTable(rc)
	rows := 0
	if table != nil {
		rows = table.Len()
	}
	common.LogLoad("inflammation", uri, rows, time.Since(start), err)
	return table, err
}

func (s *Service) loadCatalog(ctx context.Context) (*recipe.Catalog, error) {
	uri := s.config.Data.RecipesJSON
	start := time.Now()
	rc, err := s.loader.Open(ctx, uri)
	if err != nil {
		common.LogLoad("recipes", uri, 0, time.Since(start), err)
		return nil, err
	}
	defer rc.Close()

	catalog, err := recipe.LoadCatalog(rc)
	rows := 0
	if catalog != nil {
		rows = catalog.Len()
	}
	common.LogLoad("recipes", uri, rows, time.Since(start), err)
	return catalog, err
}

func (s *Service) currentPersonalizer() *inflammation.Personalizer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.personalizer
}

// Ready 資料表是否已載入
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state != nil
}

// Status 回傳載入狀態與快取統計
func (s *Service) Status() map[string]interface{} {
	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()

	status := map[string]interface{}{"ready": st != nil}
	if st != nil {
		status["ingredients"] = st.table.Len()
		status["recipes"] = st.catalog.Len()
		status["persons"] = st.scorer.Persons()
		status["loaded_at"] = st.loadedAt.Format(time.RFC3339)
	}
	if s.cache != nil {
		status["cache"] = s.cache.Stats()
	}
	return status
}

func (s *Service) current() (*state, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, common.Wrap(common.ErrDataUnavailable, errors.New("data tables are not loaded"))
	}
	return s.state, nil
}

// Persons 回傳可查詢的對象
func (s *Service) Persons() ([]string, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.scorer.Persons(), nil
}

// resolvePerson 驗證並正規化對象名稱
func (s *Service) resolvePerson(st *state, person string) (string, error) {
	person = strings.ToLower(strings.TrimSpace(person))
	if person == "" {
		person = strings.ToLower(s.config.Planner.DefaultPerson)
	}
	if person == "" {
		person = inflammation.PersonGeneral
	}
	for _, p := range st.scorer.Persons() {
		if p == person {
			return person, nil
		}
	}
	return "", common.Wrap(common.ErrInvalidRequest, fmt.Errorf("unknown person %q", person))
}

// IngredientScore 查詢食材分數
func (s *Service) IngredientScore(name string) (*IngredientScore, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}

	match, ok := st.scorer.Matcher().Match(name)
	if !ok {
		return nil, common.Wrap(common.ErrNoMatch, fmt.Errorf("ingredient %q", name))
	}
	set, _ := st.table.Lookup(match.Key)

	result := &IngredientScore{
		Query:  name,
		Match:  match,
		Scores: roundScores(set),
	}
	if st.nutrients != nil {
		for _, n := range st.nutrients.Ingredients() {
			if inflammation.NormalizeKey(n) != match.Key {
				continue
			}
			profile, _ := st.nutrients.Lookup(n)
			dii := s.dii.Score(n, profile)
			result.DII = &dii
			break
		}
	}
	return result, nil
}

// ScoreNutrients 以營養素數值直接計算 DII 與個人化分數
func (s *Service) ScoreNutrients(name string, profile inflammation.NutrientProfile) NutrientScore {
	if profile == nil {
		profile = inflammation.NutrientProfile{}
	}
	result := s.dii.Score(name, profile)
	return NutrientScore{
		Result: result,
		Scores: roundScores(s.currentPersonalizer().Personalize(result.Score, name)),
	}
}

// Recipes 回傳所有食譜
func (s *Service) Recipes() ([]recipe.Recipe, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	return st.catalog.Recipes(), nil
}

// RecipeScores 計算食譜對所有對象的分數
func (s *Service) RecipeScores(id string) (map[string]recipe.Score, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	rec, ok := st.catalog.Get(recipe.RecipeID(strings.TrimSpace(id)))
	if !ok {
		return nil, common.Wrap(common.ErrNotFound, fmt.Errorf("recipe %q", id))
	}
	return st.scorer.ScoreAllPeople(rec), nil
}

// ScoreCatalog 依目錄順序計算所有食譜對某人的分數
func (s *Service) ScoreCatalog(ctx context.Context, person string) ([]recipe.Score, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	person, err = s.resolvePerson(st, person)
	if err != nil {
		return nil, err
	}
	return st.scorer.ScoreCatalog(ctx, st.catalog.Recipes(), person, s.config.Planner.Workers)
}

// Plan 產生週菜單，不經過快取
func (s *Service) Plan(ctx context.Context, person string, goal menu.Goal) (*menu.Menu, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	person, err = s.resolvePerson(st, person)
	if err != nil {
		return nil, err
	}
	return st.planner.Plan(ctx, st.catalog.Recipes(), person, goal)
}

// WeeklyMenu 回傳序列化後的週菜單，相同對象與目標的結果會被快取
func (s *Service) WeeklyMenu(ctx context.Context, person string, goal menu.Goal) (json.RawMessage, error) {
	return s.cached(ctx, cacheNamespaceMenu, person, goal, func(m *menu.Menu) interface{} { return m })
}

// ShoppingList 回傳週菜單的購物清單
func (s *Service) ShoppingList(ctx context.Context, person string, goal menu.Goal) (json.RawMessage, error) {
	return s.cached(ctx, cacheNamespaceShopping, person, goal, func(m *menu.Menu) interface{} { return menu.BuildShoppingList(m) })
}

func (s *Service) cached(ctx context.Context, namespace, person string, goal menu.Goal, view func(*menu.Menu) interface{}) (json.RawMessage, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	person, err = s.resolvePerson(st, person)
	if err != nil {
		return nil, err
	}
	if goal == "" {
		goal = menu.MinimizeInflammation
	}

	key := fmt.Sprintf("%s|%s|%d", person, goal, st.loadedAt.UnixNano())
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, namespace, key); err == nil {
			return data, nil
		} else if !errors.Is(err, common.ErrCacheMiss) {
			common.LogWarn("讀取快取失敗", zap.String("namespace", namespace), zap.Error(err))
		}
	}

	m, err := st.planner.Plan(ctx, st.catalog.Recipes(), person, goal)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(view(m))
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", namespace, err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, namespace, key, data); err != nil {
			common.LogWarn("寫入快取失敗", zap.String("namespace", namespace), zap.Error(err))
		}
	}
	return data, nil
}

// Close 釋放快取資源
func (s *Service) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

func roundScores(set inflammation.ScoreSet) map[string]float64 {
	out := make(map[string]float64, len(set.Scores))
	for p, v := range set.Scores {
		out[p] = common.Round(v, 4)
	}
	return out
}
