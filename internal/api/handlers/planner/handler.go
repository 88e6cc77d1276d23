package planner

import (
	"context"
	"encoding/json"
	"net/http"

	"inflammation-planner/internal/core/inflammation"
	"inflammation-planner/internal/core/menu"
	"inflammation-planner/internal/core/service"
	"inflammation-planner/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MenuRequest 週菜單與購物清單請求
type MenuRequest struct {
	Person string `json:"person"`
	Goal   string `json:"goal"` // minimize 或 maximize，預設 minimize
}

// NutrientScoreRequest 以營養素數值計算 DII
type NutrientScoreRequest struct {
	Ingredient string             `json:"ingredient" binding:"required"`
	Nutrients  map[string]float64 `json:"nutrients"`
}

// Handler 規劃相關 API 處理程序
type Handler struct {
	svc   *service.Service
	debug bool
}

// NewHandler 創建處理程序
func NewHandler(svc *service.Service, debug bool) *Handler {
	return &Handler{svc: svc, debug: debug}
}

// requestID 取得請求 ID，缺少時補上
func requestID(c *gin.Context) string {
	id := requestid.Get(c)
	if id == "" {
		id = common.GenerateUUID()
		c.Header("X-Request-ID", id)
	}
	return id
}

// respondError 將錯誤轉換為 API 錯誤響應
func (h *Handler) respondError(c *gin.Context, err error) {
	ce := common.AsCustomError(err)
	common.LogWarn("請求處理失敗",
		zap.String("request_id", requestID(c)),
		zap.String("path", c.Request.URL.Path),
		zap.String("code", ce.Code),
		zap.Error(err),
	)
	_ = c.Error(err)
	c.AbortWithStatusJSON(ce.Status, ce.ToResponse(h.debug))
}

// HandleIngredient 查詢單一食材分數
func (h *Handler) HandleIngredient(c *gin.Context) {
	result, err := h.svc.IngredientScore(c.Param("name"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleNutrientScore 以營養素數值計算 DII 與個人化分數
func (h *Handler) HandleNutrientScore(c *gin.Context) {
	var req NutrientScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, common.Wrap(common.ErrInvalidRequest, err))
		return
	}
	c.JSON(http.StatusOK, h.svc.ScoreNutrients(req.Ingredient, inflammation.NutrientProfile(req.Nutrients)))
}

// HandlePersons 列出可查詢的對象
func (h *Handler) HandlePersons(c *gin.Context) {
	persons, err := h.svc.Persons()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"persons": persons})
}

// HandleRecipes 列出食譜目錄
func (h *Handler) HandleRecipes(c *gin.Context) {
	recipes, err := h.svc.Recipes()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes, "total": len(recipes)})
}

// HandleRecipeScores 食譜對所有對象的分數
func (h *Handler) HandleRecipeScores(c *gin.Context) {
	scores, err := h.svc.RecipeScores(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// HandleWeeklyMenu 產生週菜單
func (h *Handler) HandleWeeklyMenu(c *gin.Context) {
	h.handleMenu(c, h.svc.WeeklyMenu)
}

// HandleShoppingList 產生週菜單的購物清單
func (h *Handler) HandleShoppingList(c *gin.Context) {
	h.handleMenu(c, h.svc.ShoppingList)
}

type menuView func(ctx context.Context, person string, goal menu.Goal) (json.RawMessage, error)

func (h *Handler) handleMenu(c *gin.Context, view menuView) {
	id := requestID(c)

	var req MenuRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondError(c, common.Wrap(common.ErrInvalidRequest, err))
			return
		}
	}
	goal, err := menu.ParseGoal(req.Goal)
	if err != nil {
		h.respondError(c, err)
		return
	}

	common.LogInfo("開始產生週菜單",
		zap.String("request_id", id),
		zap.String("person", req.Person),
		zap.String("goal", string(goal)),
	)

	data, err := view(c.Request.Context(), req.Person, goal)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
