package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/core/normalize"
	"meal-planner/internal/core/planning"
	"meal-planner/internal/core/recipe"
	"meal-planner/internal/infrastructure/cache"
	"meal-planner/internal/infrastructure/config"
	"meal-planner/internal/infrastructure/database"
	"meal-planner/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	profiles  map[string]*generation.IngredientProfile
	recipe    *generation.RecipeSkeleton
	plan      *generation.MealPlanSkeleton
	recipeErr error
}

func (g *stubGenerator) GenerateIngredientProfile(ctx context.Context, name string) (*generation.IngredientProfile, error) {
	if p, ok := g.profiles[normalize.Name(name)]; ok {
		return p, nil
	}
	return nil, &generation.Error{Kind: common.ErrMalformedGeneration, Err: errors.New("unknown")}
}

func (g *stubGenerator) GenerateUnitRatios(ctx context.Context, name string) (*generation.UnitRatioList, error) {
	return &generation.UnitRatioList{Ingredient: name}, nil
}

func (g *stubGenerator) GenerateRecipe(ctx context.Context, request string) (*generation.RecipeSkeleton, error) {
	if g.recipeErr != nil {
		return nil, g.recipeErr
	}
	return g.recipe, nil
}

func (g *stubGenerator) GenerateMealPlan(ctx context.Context, req generation.MealPlanRequest) (*generation.MealPlanSkeleton, error) {
	return g.plan, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Version: "test", Env: "test"},
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second, MaxBodyBytes: 1 << 16},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config, gen *stubGenerator, fingerprints cache.FingerprintStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	models := append(ingredient.Models(), recipe.Models()...)
	models = append(models, planning.Models()...)
	db, err := database.OpenMemory(models...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	store := ingredient.NewStore(db)
	resolver := ingredient.NewResolver(store, gen)
	recipes := recipe.NewService(db, store, resolver, gen)

	router, err := SetupRouter(cfg, Dependencies{
		DB:           db,
		Resolver:     resolver,
		Recipes:      recipes,
		Plans:        planning.NewService(db, gen, recipes),
		Fingerprints: fingerprints,
	})
	require.NoError(t, err)
	return router
}

func defaultGenerator() *stubGenerator {
	return &stubGenerator{profiles: map[string]*generation.IngredientProfile{
		"olive oil": {
			Name:     "olive oil",
			Category: "oils",
			Nutrition: &generation.Nutrition{
				Kcal: common.Float64Ptr(884), Protein: common.Float64Ptr(0),
				Carbs: common.Float64Ptr(0), Fat: common.Float64Ptr(100),
			},
			Ratios: []generation.RatioSuggestion{{FromUnitCode: "tbsp", ToUnitCode: "g", Factor: 13.5}},
		},
	}}
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body common.ErrorResponse
	decode(t, w, &body)
	return body.Code
}

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(t, testConfig(), defaultGenerator(), nil)

	for _, path := range []string{"/health", "/ready", "/live"} {
		w := do(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	var h map[string]interface{}
	decode(t, do(t, r, http.MethodGet, "/health", nil), &h)
	assert.Equal(t, "test", h["version"])
	assert.Equal(t, "ok", h["database"])
}

func TestResolveAndRatios(t *testing.T) {
	r := newTestRouter(t, testConfig(), defaultGenerator(), nil)

	w := do(t, r, http.MethodPost, "/api/v1/ingredients/resolve", gin.H{"name": "Olive Oil"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ing ingredient.Ingredient
	decode(t, w, &ing)
	assert.Equal(t, "Olive oil", ing.Name)
	assert.NotZero(t, ing.ID)

	w = do(t, r, http.MethodGet, "/api/v1/ingredients/lookup?name=olive%20oils", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/ingredients/1/ratios/TBSP", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ratio ingredient.UnitRatio
	decode(t, w, &ratio)
	assert.Equal(t, 13.5, ratio.Ratio)

	w = do(t, r, http.MethodPut, "/api/v1/ingredients/1/ratios", gin.H{"unit_code": "cup", "grams_per_unit": 216})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/ingredients/1/ratios", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Ratios []ingredient.UnitRatio `json:"ratios"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Ratios, 3)

	w = do(t, r, http.MethodPut, "/api/v1/ingredients/1/ratios", gin.H{"unit_code": "g", "grams_per_unit": 2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRatio, errorCode(t, w))

	w = do(t, r, http.MethodGet, "/api/v1/ingredients/1/ratios/piece", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodeUnitNotFound, errorCode(t, w))
}

func TestIngredientErrors(t *testing.T) {
	r := newTestRouter(t, testConfig(), defaultGenerator(), nil)

	w := do(t, r, http.MethodGet, "/api/v1/ingredients/lookup?name=saffron", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, common.ErrCodeNotFound, errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/ingredients/resolve", gin.H{"name": "saffron"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, common.ErrCodeIngredientUnresolved, errorCode(t, w))

	w = do(t, r, http.MethodPost, "/api/v1/ingredients/resolve", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/ingredients/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/ingredients/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUnit(t *testing.T) {
	r := newTestRouter(t, testConfig(), defaultGenerator(), nil)

	w := do(t, r, http.MethodPost, "/api/v1/units", gin.H{"code": " Pinch ", "display": "pinch"})
	require.Equal(t, http.StatusOK, w.Code)
	var unit ingredient.Unit
	decode(t, w, &unit)
	assert.Equal(t, "pinch", unit.Code)
}

func TestRecipeLifecycle(t *testing.T) {
	r := newTestRouter(t, testConfig(), defaultGenerator(), nil)

	w := do(t, r, http.MethodPost, "/api/v1/recipes", gin.H{
		"title": "Dressing",
		"lines": []gin.H{{"ingredient": "olive oil", "unit_code": "tbsp", "amount": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created recipe.Recipe
	decode(t, w, &created)
	require.NotNil(t, created.Kcal)
	assert.Equal(t, 238.68, *created.Kcal)

	w = do(t, r, http.MethodPut, "/api/v1/recipes/1/lines", gin.H{
		"lines": []gin.H{{"ingredient": "olive oil", "unit_code": "g", "amount": 10}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated recipe.Recipe
	decode(t, w, &updated)
	assert.Equal(t, 88.4, *updated.Kcal)

	w = do(t, r, http.MethodGet, "/api/v1/recipes/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got recipe.Recipe
	decode(t, w, &got)
	assert.Equal(t, 88.4, *got.Kcal)
	assert.Len(t, got.Lines, 1)

	w = do(t, r, http.MethodGet, "/api/v1/recipes/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/recipes", gin.H{"title": "x", "servings": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, common.ErrCodeInvalidRequest, errorCode(t, w))
}

func TestGenerateRecipeErrors(t *testing.T) {
	gen := defaultGenerator()
	gen.recipeErr = &generation.Error{Kind: common.ErrGenerationExhausted, Attempts: 3, Err: errors.New("503")}
	r := newTestRouter(t, testConfig(), gen, nil)

	w := do(t, r, http.MethodPost, "/api/v1/recipes/generate", gin.H{"prompt": "soup"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, common.ErrCodeGenerationExhausted, errorCode(t, w))

	gen.recipeErr = &generation.Error{Kind: common.ErrMalformedGeneration, Err: errors.New("not json")}
	w = do(t, r, http.MethodPost, "/api/v1/recipes/generate", gin.H{"prompt": "stew"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, common.ErrCodeMalformedGeneration, errorCode(t, w))
}

func TestGenerateMealPlan(t *testing.T) {
	gen := defaultGenerator()
	gen.recipe = &generation.RecipeSkeleton{
		Title:       "Oil shot",
		Ingredients: []generation.RecipeIngredient{{Name: "olive oil", Amount: common.Float64Ptr(1), UnitCode: "tbsp"}},
	}
	gen.plan = &generation.MealPlanSkeleton{Days: []generation.PlanDay{
		{Date: "2026-05-04", Meals: []generation.PlannedMeal{{Slot: "lunch", Title: "Oil shot"}}},
	}}
	r := newTestRouter(t, testConfig(), gen, nil)

	w := do(t, r, http.MethodPost, "/api/v1/meal-plans/generate", gin.H{
		"name": "Test", "start_date": "2026-05-04", "end_date": "2026-05-05", "meals_per_day": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var plan planning.MealPlan
	decode(t, w, &plan)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "LUNCH", plan.Entries[0].Slot)

	w = do(t, r, http.MethodGet, "/api/v1/meal-plans/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/meal-plans/generate", gin.H{
		"start_date": "2026-05-05", "end_date": "2026-05-04",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDuplicateRequestsRejected(t *testing.T) {
	cfg := testConfig()
	cfg.DedupWindow = time.Minute
	r := newTestRouter(t, cfg, defaultGenerator(), cache.NewMemoryStore())

	body := gin.H{"code": "pinch"}
	first := do(t, r, http.MethodPost, "/api/v1/units", body)
	second := do(t, r, http.MethodPost, "/api/v1/units", body)
	other := do(t, r, http.MethodPost, "/api/v1/units", gin.H{"code": "dash"})

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Hour}
	r := newTestRouter(t, cfg, defaultGenerator(), nil)

	for i := 0; i < 2; i++ {
		w := do(t, r, http.MethodGet, "/api/v1/ingredients/lookup?name=x", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	w := do(t, r, http.MethodGet, "/api/v1/ingredients/lookup?name=x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// health is outside the limited group
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/live", nil).Code)
}

func TestBodySizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	r := newTestRouter(t, cfg, defaultGenerator(), nil)

	w := do(t, r, http.MethodPost, "/api/v1/ingredients/resolve", gin.H{"name": "a very long ingredient name indeed"})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
