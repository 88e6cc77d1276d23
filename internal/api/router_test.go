package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inflammation-planner/internal/core/service"
	"inflammation-planner/internal/infrastructure/config"
	"inflammation-planner/internal/infrastructure/source"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const routerTableCSV = "ingredient,general people inflammation,Sam inflammation\n" +
	"oats,-0.6,-0.5\n" +
	"tomato,0.3,0.4\n" +
	"beef,1.1,1.2\n"

const routerRecipesJSON = `{"popular_recipes_database":{"recipes":[
 {"id":1,"title":"Porridge","meal_type":["breakfast"],"ingredients":[{"name":"rolled oats","quantity":80,"unit":"g"}]},
 {"id":2,"title":"Tomato Salad","meal_type":["lunch"],"ingredients":[{"name":"tomato","quantity":150,"unit":"g"}]},
 {"id":3,"title":"Steak","meal_type":["dinner"],"ingredients":[{"name":"beef","quantity":200,"unit":"g"}]}
]}}`

func newTestRouter(t *testing.T, load bool) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	tablePath := filepath.Join(dir, "table.csv")
	recipesPath := filepath.Join(dir, "recipes.json")
	if err := os.WriteFile(tablePath, []byte(routerTableCSV), 0o644); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if err := os.WriteFile(recipesPath, []byte(routerRecipesJSON), 0o644); err != nil {
		t.Fatalf("write recipes: %v", err)
	}

	cfg := &config.Config{
		App:         config.AppConfig{Version: "test"},
		Server:      config.ServerConfig{MaxBodyBytes: 1 << 16},
		Data:        config.DataConfig{InflammationCSV: tablePath, RecipesJSON: recipesPath},
		Planner:     config.PlannerConfig{Workers: 2, DefaultPerson: "general"},
		DedupWindow: time.Millisecond,
	}
	svc := service.NewService(cfg, source.NewLoader(time.Second, ""), nil)
	if load {
		if err := svc.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	return SetupRouter(cfg, svc)
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, false)
	if rec := do(t, r, http.MethodGet, "/live", ""); rec.Code != http.StatusOK {
		t.Fatalf("live: expected 200, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready before load: expected 503, got %d", rec.Code)
	}
	rec := do(t, r, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready":false`) {
		t.Fatalf("health: unexpected %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestEndpointsBeforeLoadAreUnavailable(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, false)
	rec := do(t, r, http.MethodGet, "/api/v1/recipes", "")
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), `"DATA_UNAVAILABLE"`) {
		t.Fatalf("expected DATA_UNAVAILABLE, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestIngredientEndpoint(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, true)
	rec := do(t, r, http.MethodGet, "/api/v1/ingredients/rolled%20oats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Match struct {
			Key  string `json:"matched_as"`
			Kind string `json:"match_kind"`
		} `json:"match"`
		Scores map[string]float64 `json:"scores"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Match.Key != "oats" || body.Match.Kind != "substring" || body.Scores["sam"] != -0.5 {
		t.Fatalf("unexpected body %+v", body)
	}

	if rec := do(t, r, http.MethodGet, "/api/v1/ingredients/quinoa", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown ingredient, got %d", rec.Code)
	}
}

func TestNutrientScoreEndpoint(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, false)
	rec := do(t, r, http.MethodPost, "/api/v1/dii/score", `{"ingredient":"Fresh ginger","nutrients":{"Fiber (g)":2}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"special_matches":1`) {
		t.Fatalf("expected ginger special match in %s", rec.Body.String())
	}

	if rec := do(t, r, http.MethodPost, "/api/v1/dii/score", `{"nutrients":{}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without ingredient, got %d", rec.Code)
	}
}

func TestRecipeEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, true)
	rec := do(t, r, http.MethodGet, "/api/v1/recipes", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":3`) {
		t.Fatalf("recipes: unexpected %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/recipes/3/scores", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("scores: expected 200, got %d", rec.Code)
	}
	var scores map[string]struct {
		Total float64 `json:"total_inflammation_score"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &scores); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if scores["general"].Total != 2.2 || scores["sam"].Total != 2.4 {
		t.Fatalf("unexpected scores %s", rec.Body.String())
	}

	if rec := do(t, r, http.MethodGet, "/api/v1/recipes/42/scores", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestMenuEndpoints(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, true)
	rec := do(t, r, http.MethodPost, "/api/v1/menu", `{"person":"sam","goal":"minimize"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("menu: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	var doc struct {
		Person     string                     `json:"person"`
		Goal       string                     `json:"optimization_goal"`
		WeeklyMenu map[string]json.RawMessage `json:"weekly_menu"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Person != "sam" || doc.Goal != "minimize_inflammation" || len(doc.WeeklyMenu) != 7 {
		t.Fatalf("unexpected menu %s", rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/menu/shopping-list", `{"goal":"max"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total_unique_ingredients":3`) {
		t.Fatalf("shopping list: unexpected %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(t, r, http.MethodPost, "/api/v1/menu", `{"goal":"balanced"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown goal, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/api/v1/menu", `{"person":"nobody"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown person, got %d", rec.Code)
	}
}
