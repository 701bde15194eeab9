// Package planning builds dated meal plans and fills them with generated recipes.
package planning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/normalize"
	"meal-planner/internal/core/recipe"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// MaxPlanDays bounds the number of generated days per plan.
	MaxPlanDays        = 31
	defaultMealsPerDay = 3
	maxMealsPerDay     = 6
	minKcalPerMeal     = 250
)

// PlanGenerator meal plan generation
type PlanGenerator interface {
	GenerateMealPlan(ctx context.Context, req generation.MealPlanRequest) (*generation.MealPlanSkeleton, error)
}

// RecipeGenerator turns a prompt into a stored recipe
type RecipeGenerator interface {
	Generate(ctx context.Context, request string) (*recipe.Recipe, error)
}

// Service meal plan workflows
type Service struct {
	db      *gorm.DB
	gen     PlanGenerator
	recipes RecipeGenerator
}

// NewService creates a planning service
func NewService(db *gorm.DB, gen PlanGenerator, recipes RecipeGenerator) *Service {
	return &Service{db: db, gen: gen, recipes: recipes}
}

// PlanInput plan parameters; dates are YYYY-MM-DD.
type PlanInput struct {
	Name             string   `json:"name"`
	StartDate        string   `json:"start_date" binding:"required"`
	EndDate          string   `json:"end_date" binding:"required"`
	MealsPerDay      int      `json:"meals_per_day"`
	TargetKcalPerDay *int     `json:"target_kcal_per_day"`
	Preferences      []string `json:"preferences"`
	Goal             string   `json:"goal"`
}

type planRange struct {
	start, end  time.Time
	mealsPerDay int
}

func invalid(format string, args ...interface{}) error {
	return common.ErrInvalidRequest.Wrap(fmt.Errorf(format, args...))
}

func parseDate(field, s string) (time.Time, error) {
	d, err := time.Parse(generation.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, invalid("%s: expected YYYY-MM-DD, got %q", field, s)
	}
	return d, nil
}

func (in *PlanInput) validate() (planRange, error) {
	var r planRange
	start, err := parseDate("start_date", in.StartDate)
	if err != nil {
		return r, err
	}
	end, err := parseDate("end_date", in.EndDate)
	if err != nil {
		return r, err
	}
	if end.Before(start) {
		return r, invalid("end_date is before start_date")
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > MaxPlanDays {
		return r, invalid("plan spans %d days, at most %d allowed", days, MaxPlanDays)
	}

	meals := in.MealsPerDay
	if meals == 0 {
		meals = defaultMealsPerDay
	}
	if meals < 1 || meals > maxMealsPerDay {
		return r, invalid("meals_per_day must be between 1 and %d", maxMealsPerDay)
	}
	if in.TargetKcalPerDay != nil && *in.TargetKcalPerDay <= 0 {
		return r, invalid("target_kcal_per_day must be positive")
	}
	return planRange{start: start, end: end, mealsPerDay: meals}, nil
}

// CreatePlan stores an empty plan.
func (s *Service) CreatePlan(ctx context.Context, in PlanInput) (*MealPlan, error) {
	r, err := in.validate()
	if err != nil {
		return nil, err
	}
	return s.createPlan(ctx, in.Name, r, in.TargetKcalPerDay)
}

func (s *Service) createPlan(ctx context.Context, name string, r planRange, target *int) (*MealPlan, error) {
	plan := newPlan(name, r, target)
	if err := s.db.WithContext(ctx).Create(plan).Error; err != nil {
		return nil, fmt.Errorf("failed to create meal plan: %w", err)
	}
	return plan, nil
}

func newPlan(name string, r planRange, target *int) *MealPlan {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Meal plan " + r.start.Format(generation.DateLayout)
	}
	return &MealPlan{
		Name:             name,
		StartDate:        r.start,
		EndDate:          r.end,
		MealsPerDay:      r.mealsPerDay,
		TargetKcalPerDay: target,
	}
}

// Get loads a plan with its entries ordered by date.
func (s *Service) Get(ctx context.Context, id uint) (*MealPlan, error) {
	var plan MealPlan
	err := s.db.WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB { return db.Order("date").Order("id") }).
		Preload("Entries.Recipe").
		First(&plan, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound.Wrap(fmt.Errorf("meal plan %d", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meal plan %d: %w", id, err)
	}
	return &plan, nil
}

// AddEntry puts a recipe into a slot, replacing whatever occupied it.
func (s *Service) AddEntry(ctx context.Context, planID uint, day time.Time, slot generation.Slot, recipeID uint, servings float64) (*MealEntry, error) {
	var plan MealPlan
	if err := s.db.WithContext(ctx).First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.Wrap(fmt.Errorf("meal plan %d", planID))
		}
		return nil, fmt.Errorf("failed to load meal plan %d: %w", planID, err)
	}
	if !plan.Covers(day) {
		return nil, invalid("%s is outside the plan range", day.Format(generation.DateLayout))
	}
	if _, ok := generation.ParseSlot(string(slot)); !ok {
		return nil, invalid("unknown meal slot %q", slot)
	}
	if !(servings > 0) {
		servings = 1
	}

	return upsertEntry(s.db.WithContext(ctx), &MealEntry{
		MealPlanID: planID,
		Date:       day,
		Slot:       string(slot),
		RecipeID:   recipeID,
		Servings:   servings,
	})
}

// upsertEntry replaces the occupant of the entry's (plan, date, slot) cell.
func upsertEntry(db *gorm.DB, entry *MealEntry) (*MealEntry, error) {
	err := db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meal_plan_id"}, {Name: "date"}, {Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"recipe_id", "servings"}),
		}).
		Create(entry).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store meal entry: %w", err)
	}

	var stored MealEntry
	if err := db.
		Where("meal_plan_id = ? AND date = ? AND slot = ?", entry.MealPlanID, entry.Date, entry.Slot).
		First(&stored).Error; err != nil {
		return nil, fmt.Errorf("failed to load meal entry: %w", err)
	}
	return &stored, nil
}

// Generate asks the backend for a plan outline, then generates one recipe per
// planned meal. Days outside the range and unknown slots are skipped; a meal
// whose recipe cannot be generated is skipped with a warning. The plan is only
// stored once at least one meal has a recipe, together with its entries.
func (s *Service) Generate(ctx context.Context, in PlanInput) (*MealPlan, error) {
	r, err := in.validate()
	if err != nil {
		return nil, err
	}
	prefs := cleanPreferences(in.Preferences)

	sk, err := s.gen.GenerateMealPlan(ctx, generation.MealPlanRequest{
		StartDate:        r.start,
		EndDate:          r.end,
		MealsPerDay:      r.mealsPerDay,
		TargetKcalPerDay: in.TargetKcalPerDay,
		Preferences:      prefs,
		Goal:             strings.TrimSpace(in.Goal),
	})
	if err != nil {
		return nil, err
	}

	target := sk.TargetKcalPerDay
	if target == nil {
		target = in.TargetKcalPerDay
	}
	name := in.Name
	if normalize.IsBlank(name) {
		name = sk.Name
	}
	plan := newPlan(name, r, target)

	days := make([]generation.PlanDay, len(sk.Days))
	copy(days, sk.Days)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	var (
		entries []MealEntry
		lastErr error
	)
	for _, d := range days {
		day, err := time.Parse(generation.DateLayout, d.Date)
		if err != nil || !plan.Covers(day) {
			common.LogDebug("skipping planned day", zap.String("date", d.Date))
			continue
		}
		for _, m := range d.Meals {
			slot, ok := generation.ParseSlot(m.Slot)
			if !ok {
				common.LogDebug("skipping planned meal with unknown slot", zap.String("slot", m.Slot))
				continue
			}

			prompt := mealPrompt(m, slot, target, r.mealsPerDay, prefs, in.Goal)
			rec, err := s.recipes.Generate(ctx, prompt)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				common.LogWarn("planned meal skipped",
					zap.String("date", d.Date),
					zap.String("slot", string(slot)),
					zap.Error(err),
				)
				lastErr = err
				continue
			}

			servings := 1.0
			if m.Servings != nil && *m.Servings > 0 {
				servings = *m.Servings
			}
			entries = append(entries, MealEntry{
				Date:     day,
				Slot:     string(slot),
				RecipeID: rec.ID,
				Servings: servings,
			})
		}
	}

	if len(entries) == 0 && lastErr != nil {
		return nil, lastErr
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(plan).Error; err != nil {
			return fmt.Errorf("failed to create meal plan: %w", err)
		}
		for i := range entries {
			entries[i].MealPlanID = plan.ID
			if _, err := upsertEntry(tx, &entries[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("meal plan generated",
		zap.Uint("plan_id", plan.ID),
		zap.Int("entries", len(entries)),
	)
	return s.Get(ctx, plan.ID)
}

// KcalPerMeal is the per-meal hint derived from a daily target.
func KcalPerMeal(targetPerDay *int, mealsPerDay int) (int, bool) {
	if targetPerDay == nil || mealsPerDay <= 0 {
		return 0, false
	}
	per := *targetPerDay / mealsPerDay
	if per < minKcalPerMeal {
		per = minKcalPerMeal
	}
	return per, true
}

func mealPrompt(m generation.PlannedMeal, slot generation.Slot, target *int, mealsPerDay int, prefs []string, goal string) string {
	servings := 1.0
	if m.Servings != nil && *m.Servings > 0 {
		servings = *m.Servings
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s recipe titled %q.", strings.ToLower(string(slot)), strings.TrimSpace(m.Title))
	fmt.Fprintf(&b, " Servings: %s.", strconv.FormatFloat(servings, 'f', -1, 64))
	if kcal, ok := KcalPerMeal(target, mealsPerDay); ok {
		fmt.Fprintf(&b, " Aim around %d kcal total.", kcal)
	}
	if len(prefs) > 0 {
		fmt.Fprintf(&b, " Respect these preferences: %s.", strings.Join(prefs, ", "))
	}
	if goal = strings.TrimSpace(goal); goal != "" {
		fmt.Fprintf(&b, " Goal: %s.", goal)
	}
	if notes := strings.TrimSpace(m.Notes); notes != "" {
		fmt.Fprintf(&b, " Notes: %s.", notes)
	}
	return b.String()
}

func cleanPreferences(prefs []string) []string {
	out := make([]string, 0, len(prefs))
	for _, p := range prefs {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
