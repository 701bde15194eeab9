package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/core/recipe"
	"meal-planner/internal/infrastructure/database"
	"meal-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakePlanner struct {
	plan *generation.MealPlanSkeleton
	err  error
	got  generation.MealPlanRequest
}

func (f *fakePlanner) GenerateMealPlan(ctx context.Context, req generation.MealPlanRequest) (*generation.MealPlanSkeleton, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.plan, nil
}

// fakeRecipes stores a bare recipe per prompt
type fakeRecipes struct {
	db      *gorm.DB
	prompts []string
	failOn  map[int]error
}

func (f *fakeRecipes) Generate(ctx context.Context, prompt string) (*recipe.Recipe, error) {
	f.prompts = append(f.prompts, prompt)
	if err, ok := f.failOn[len(f.prompts)]; ok {
		return nil, err
	}
	r := &recipe.Recipe{Title: prompt, Source: recipe.SourceAI}
	if err := f.db.Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

func newTestService(t *testing.T, planner *fakePlanner) (*Service, *fakeRecipes) {
	t.Helper()
	models := append(ingredient.Models(), recipe.Models()...)
	models = append(models, Models()...)
	db, err := database.OpenMemory(models...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	recipes := &fakeRecipes{db: db, failOn: map[int]error{}}
	return NewService(db, planner, recipes), recipes
}

func intPtr(v int) *int { return &v }

func servings(v float64) *float64 { return &v }

func date(s string) time.Time {
	d, err := time.Parse(generation.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestGenerateFillsPlan(t *testing.T) {
	planner := &fakePlanner{plan: &generation.MealPlanSkeleton{
		Name:             "Cutting week",
		TargetKcalPerDay: intPtr(1800),
		Days: []generation.PlanDay{
			{Date: "2026-03-03", Meals: []generation.PlannedMeal{
				{Slot: "dinner", Title: "Salmon bowl"},
			}},
			{Date: "2026-03-02", Meals: []generation.PlannedMeal{
				{Slot: "BREAKFAST", Title: "Oat porridge", Servings: servings(2)},
				{Slot: "brunch", Title: "Skipped"},
			}},
			{Date: "2026-03-09", Meals: []generation.PlannedMeal{
				{Slot: "LUNCH", Title: "Out of range"},
			}},
		},
	}}
	svc, recipes := newTestService(t, planner)

	plan, err := svc.Generate(context.Background(), PlanInput{
		StartDate:   "2026-03-02",
		EndDate:     "2026-03-04",
		MealsPerDay: 3,
		Preferences: []string{"pescatarian", " "},
		Goal:        "lose weight",
	})
	require.NoError(t, err)

	assert.Equal(t, "Cutting week", plan.Name)
	require.NotNil(t, plan.TargetKcalPerDay)
	assert.Equal(t, 1800, *plan.TargetKcalPerDay)
	assert.Equal(t, []string{"pescatarian"}, planner.got.Preferences)
	assert.Equal(t, 3, planner.got.MealsPerDay)

	require.Len(t, recipes.prompts, 2)
	// days are processed in date order
	assert.Equal(t,
		`Create a breakfast recipe titled "Oat porridge". Servings: 2. Aim around 600 kcal total. Respect these preferences: pescatarian. Goal: lose weight.`,
		recipes.prompts[0])
	assert.Contains(t, recipes.prompts[1], `Create a dinner recipe titled "Salmon bowl". Servings: 1.`)

	require.Len(t, plan.Entries, 2)
	assert.Equal(t, "BREAKFAST", plan.Entries[0].Slot)
	assert.Equal(t, 2.0, plan.Entries[0].Servings)
	assert.True(t, plan.Entries[0].Date.Equal(date("2026-03-02")))
	assert.Equal(t, "DINNER", plan.Entries[1].Slot)
	assert.Equal(t, 1.0, plan.Entries[1].Servings)
	require.NotNil(t, plan.Entries[1].Recipe)
}

func TestGenerateSkipsFailedMeals(t *testing.T) {
	planner := &fakePlanner{plan: &generation.MealPlanSkeleton{
		Days: []generation.PlanDay{
			{Date: "2026-03-02", Meals: []generation.PlannedMeal{
				{Slot: "LUNCH", Title: "A"},
				{Slot: "DINNER", Title: "B"},
			}},
		},
	}}
	svc, recipes := newTestService(t, planner)
	recipes.failOn[1] = errors.New("boom")

	plan, err := svc.Generate(context.Background(), PlanInput{StartDate: "2026-03-02", EndDate: "2026-03-02"})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, "DINNER", plan.Entries[0].Slot)
	assert.Equal(t, "Meal plan 2026-03-02", plan.Name)
}

func TestGenerateFailsWhenNoMealSucceeds(t *testing.T) {
	planner := &fakePlanner{plan: &generation.MealPlanSkeleton{
		Days: []generation.PlanDay{
			{Date: "2026-03-02", Meals: []generation.PlannedMeal{{Slot: "LUNCH", Title: "A"}}},
		},
	}}
	svc, recipes := newTestService(t, planner)
	recipes.failOn[1] = common.ErrIngredientNotResolvable

	_, err := svc.Generate(context.Background(), PlanInput{StartDate: "2026-03-02", EndDate: "2026-03-02"})
	assert.ErrorIs(t, err, common.ErrIngredientNotResolvable)

	// no empty plan is left behind
	var plans, entries int64
	require.NoError(t, svc.db.Model(&MealPlan{}).Count(&plans).Error)
	require.NoError(t, svc.db.Model(&MealEntry{}).Count(&entries).Error)
	assert.Zero(t, plans)
	assert.Zero(t, entries)
}

func TestGenerateWithEmptyOutlineStoresEmptyPlan(t *testing.T) {
	planner := &fakePlanner{plan: &generation.MealPlanSkeleton{Name: "Rest week"}}
	svc, recipes := newTestService(t, planner)

	plan, err := svc.Generate(context.Background(), PlanInput{StartDate: "2026-03-02", EndDate: "2026-03-03"})
	require.NoError(t, err)
	assert.Empty(t, recipes.prompts)
	assert.Equal(t, "Rest week", plan.Name)
	assert.Empty(t, plan.Entries)
}

func TestGeneratePropagatesPlanFailure(t *testing.T) {
	planner := &fakePlanner{err: &generation.Error{Kind: common.ErrGenerationExhausted, Attempts: 3, Err: errors.New("429")}}
	svc, _ := newTestService(t, planner)

	_, err := svc.Generate(context.Background(), PlanInput{StartDate: "2026-03-02", EndDate: "2026-03-03"})
	assert.ErrorIs(t, err, common.ErrGenerationExhausted)

	var count int64
	require.NoError(t, svc.db.Model(&MealPlan{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPlanInputValidation(t *testing.T) {
	svc, _ := newTestService(t, &fakePlanner{})
	ctx := context.Background()

	cases := map[string]PlanInput{
		"bad start":      {StartDate: "03/02/2026", EndDate: "2026-03-04"},
		"end before":     {StartDate: "2026-03-04", EndDate: "2026-03-02"},
		"too long":       {StartDate: "2026-01-01", EndDate: "2026-03-01"},
		"too many meals": {StartDate: "2026-03-02", EndDate: "2026-03-02", MealsPerDay: 9},
		"zero target":    {StartDate: "2026-03-02", EndDate: "2026-03-02", TargetKcalPerDay: intPtr(0)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreatePlan(ctx, in)
			assert.ErrorIs(t, err, common.ErrInvalidRequest)
		})
	}
}

func TestAddEntryReplacesSlot(t *testing.T) {
	svc, recipes := newTestService(t, &fakePlanner{})
	ctx := context.Background()

	plan, err := svc.CreatePlan(ctx, PlanInput{Name: "Week", StartDate: "2026-03-02", EndDate: "2026-03-08"})
	require.NoError(t, err)
	first, err := recipes.Generate(ctx, "first")
	require.NoError(t, err)
	second, err := recipes.Generate(ctx, "second")
	require.NoError(t, err)

	_, err = svc.AddEntry(ctx, plan.ID, date("2026-03-05"), generation.SlotLunch, first.ID, 0)
	require.NoError(t, err)
	entry, err := svc.AddEntry(ctx, plan.ID, date("2026-03-05"), generation.SlotLunch, second.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, second.ID, entry.RecipeID)
	assert.Equal(t, 3.0, entry.Servings)

	stored, err := svc.Get(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, stored.Entries, 1)

	_, err = svc.AddEntry(ctx, plan.ID, date("2026-03-09"), generation.SlotLunch, first.ID, 1)
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	_, err = svc.AddEntry(ctx, plan.ID, date("2026-03-05"), generation.Slot("BRUNCH"), first.ID, 1)
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	_, err = svc.AddEntry(ctx, 999, date("2026-03-05"), generation.SlotLunch, first.ID, 1)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestKcalPerMeal(t *testing.T) {
	kcal, ok := KcalPerMeal(intPtr(2000), 4)
	assert.True(t, ok)
	assert.Equal(t, 500, kcal)

	kcal, ok = KcalPerMeal(intPtr(600), 4)
	assert.True(t, ok)
	assert.Equal(t, 250, kcal)

	_, ok = KcalPerMeal(nil, 3)
	assert.False(t, ok)
	_, ok = KcalPerMeal(intPtr(2000), 0)
	assert.False(t, ok)
}
