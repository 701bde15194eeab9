// Package planning serves meal plan generation.
package planning

import (
	"net/http"

	"meal-planner/internal/api/handlers"
	planningService "meal-planner/internal/core/planning"

	"github.com/gin-gonic/gin"
)

// Handler meal plan endpoints
type Handler struct {
	plans *planningService.Service
}

// NewHandler creates a meal plan handler
func NewHandler(plans *planningService.Service) *Handler {
	return &Handler{plans: plans}
}

// Register mounts the routes on g.
func (h *Handler) Register(g *gin.RouterGroup) {
	g.POST("/meal-plans", h.Create)
	g.POST("/meal-plans/generate", h.Generate)
	g.GET("/meal-plans/:id", h.Get)
}

func (h *Handler) Create(c *gin.Context) {
	var req planningService.PlanInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	plan, err := h.plans.CreatePlan(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

// Generate plans the range and fills it with generated recipes.
func (h *Handler) Generate(c *gin.Context) {
	var req planningService.PlanInput
	if !handlers.BindJSON(c, &req) {
		return
	}
	plan, err := h.plans.Generate(c.Request.Context(), req)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return
	}
	plan, err := h.plans.Get(c.Request.Context(), id)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
