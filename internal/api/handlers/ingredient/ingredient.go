// Package ingredient serves ingredient resolution, units and unit ratios.
package ingredient

import (
	"net/http"

	"meal-planner/internal/api/handlers"
	ingredientSvc "meal-planner/internal/core/ingredient"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ResolveRequest free-text ingredient name
type ResolveRequest struct {
	Name string `json:"name" binding:"required"`
}

// UnitRequest unit registration
type UnitRequest struct {
	Code    string `json:"code" binding:"required"`
	Display string `json:"display"`
}

// RatioRequest grams per one unit of an ingredient
type RatioRequest struct {
	UnitCode     string  `json:"unit_code" binding:"required"`
	GramsPerUnit float64 `json:"grams_per_unit" binding:"required"`
}

// Handler ingredient endpoints
type Handler struct {
	resolver *ingredientSvc.Resolver
	store    *ingredientSvc.Store
}

// NewHandler creates an ingredient handler
func NewHandler(resolver *ingredientSvc.Resolver) *Handler {
	return &Handler{
		resolver: resolver,
		store:    resolver.Store(),
	}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/ingredients/resolve", h.Resolve)
	g.GET("/ingredients/lookup", h.Lookup)
	g.GET("/ingredients/:id", h.Get)
	g.GET("/ingredients/:id/ratios", h.ListRatios)
	g.PUT("/ingredients/:id/ratios", h.PutRatio)
	g.GET("/ingredients/:id/ratios/:unit", h.GetRatio)
	g.POST("/units", h.CreateUnit)
}

// Resolve finds or generates an ingredient.
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	ing, err := h.resolver.Resolve(c.Request.Context(), req.Name)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	common.LogInfo("ingredient resolved",
		zap.String("name", req.Name),
		zap.Uint("ingredient_id", ing.ID),
		zap.String("request_id", handlers.RequestID(c)),
	)
	c.JSON(http.StatusOK, ing)
}

// Lookup finds an existing ingredient by name.
func (h *Handler) Lookup(c *gin.Context) {
	ing, err := h.resolver.Lookup(c.Request.Context(), c.Query("name"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	ing, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

// CreateUnit registers a unit; an existing code is returned as is.
func (h *Handler) CreateUnit(c *gin.Context) {
	var req UnitRequest
	if !handlers.BindJSON(c, &req) {
		return
	}
	unit, err := h.store.EnsureUnit(c.Request.Context(), req.Code, req.Display)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, unit)
}

func (h *Handler) ListRatios(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.FindByID(ctx, id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	ratios, err := h.store.Ratios(ctx, id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratios": ratios})
}

// PutRatio sets grams per unit, registering the unit when needed.
func (h *Handler) PutRatio(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	var req RatioRequest
	if !handlers.BindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.FindByID(ctx, id); err != nil {
		handlers.RespondError(c, err)
		return
	}
	unit, err := h.store.EnsureUnit(ctx, req.UnitCode, "")
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	ratio, err := h.store.UpsertRatio(ctx, id, unit, req.GramsPerUnit)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratio)
}

// GetRatio returns the direct (ingredient, unit) ratio.
func (h *Handler) GetRatio(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	unit, err := h.store.FindUnit(ctx, c.Param("unit"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	ratio, err := h.store.FindRatio(ctx, id, unit.ID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ratio)
}
