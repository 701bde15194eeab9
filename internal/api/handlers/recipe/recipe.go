// Package recipe serves recipe creation, line replacement and generation.
package recipe

import (
	"net/http"

	"meal-planner/internal/api/handlers"
	recipeService "meal-planner/internal/core/recipe"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GenerateRequest free-text recipe request
type GenerateRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// LinesRequest full replacement of a recipe's lines
type LinesRequest struct {
	Lines []recipeService.LineInput `json:"lines"`
}

// Handler recipe endpoints
type Handler struct {
	recipes *recipeService.Service
}

// NewHandler creates a recipe handler
func NewHandler(recipes *recipeService.Service) *Handler {
	return &Handler{recipes: recipes}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/recipes", h.Create)
	g.POST("/recipes/generate", h.Generate)
	g.GET("/recipes/:id", h.Get)
	g.PUT("/recipes/:id/lines", h.ReplaceLines)
}

func (h *Handler) Create(c *gin.Context) {
	var req recipeService.CreateInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	r, err := h.recipes.Create(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	r, err := h.recipes.Get(c.Request.Context(), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ReplaceLines swaps every line and returns the recomputed recipe.
func (h *Handler) ReplaceLines(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	var req LinesRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	r, err := h.recipes.ReplaceLines(c.Request.Context(), id, req.Lines)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// Generate creates and stores a recipe from a prompt.
func (h *Handler) Generate(c *gin.Context) {
	requestID := handlers.RequestID(c)
	var req GenerateRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	common.LogInfo("generating recipe",
		zap.String("request_id", requestID),
		zap.Int("prompt_length", len(req.Prompt)),
	)
	r, err := h.recipes.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	common.LogInfo("recipe generated",
		zap.String("request_id", requestID),
		zap.Uint("recipe_id", r.ID),
		zap.Int("lines", len(r.Lines)),
	)
	c.JSON(http.StatusCreated, r)
}
