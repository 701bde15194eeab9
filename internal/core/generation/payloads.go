package generation

import (
	"fmt"
	"strings"
	"time"
)

// Payload is a response shape a call site expects back from the backend.
type Payload interface {
	Shape() string
	Validate() error
}

// Nutrition per-100 g values; any of them may be missing.
type Nutrition struct {
	Kcal    *float64 `json:"kcal"`
	Protein *float64 `json:"protein"`
	Carbs   *float64 `json:"carbs"`
	Fat     *float64 `json:"fat"`
	Fiber   *float64 `json:"fiber"`
	Sugar   *float64 `json:"sugar"`
}

// UnitSuggestion a unit the backend considers common for an ingredient
type UnitSuggestion struct {
	Code    string `json:"code"`
	Display string `json:"display"`
}

// RatioSuggestion 1 FromUnitCode = Factor ToUnitCode
type RatioSuggestion struct {
	FromUnitCode string  `json:"fromUnitCode"`
	ToUnitCode   string  `json:"toUnitCode"`
	Factor       float64 `json:"factor"`
}

// IngredientProfile synthesized ingredient
type IngredientProfile struct {
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	Nutrition *Nutrition        `json:"nutrition"`
	Units     []UnitSuggestion  `json:"units"`
	Ratios    []RatioSuggestion `json:"ratios"`
}

func (p *IngredientProfile) Shape() string { return "ingredient_profile" }

// Validate only rejects impossible values; filtering of units and ratios is up to the consumer.
func (p *IngredientProfile) Validate() error {
	if p.Nutrition == nil {
		return nil
	}
	for name, v := range map[string]*float64{
		"kcal":    p.Nutrition.Kcal,
		"protein": p.Nutrition.Protein,
		"carbs":   p.Nutrition.Carbs,
		"fat":     p.Nutrition.Fat,
		"fiber":   p.Nutrition.Fiber,
		"sugar":   p.Nutrition.Sugar,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("negative %s", name)
		}
	}
	return nil
}

// UnitGrams grams per one unit
type UnitGrams struct {
	UnitCode     string  `json:"unit_code"`
	GramsPerUnit float64 `json:"grams_per_unit"`
}

// UnitRatioList gram ratios for one ingredient
type UnitRatioList struct {
	Ingredient string      `json:"ingredient"`
	Units      []UnitGrams `json:"units"`
}

func (l *UnitRatioList) Shape() string { return "unit_ratio_list" }

func (l *UnitRatioList) Validate() error {
	for i, u := range l.Units {
		code := strings.ToLower(strings.TrimSpace(u.UnitCode))
		if !IsUnitCode(code) {
			return fmt.Errorf("units[%d]: unknown unit code %q", i, u.UnitCode)
		}
		if u.GramsPerUnit <= 0 {
			return fmt.Errorf("units[%d]: grams_per_unit must be positive", i)
		}
		if code == GramCode && u.GramsPerUnit != 1 {
			return fmt.Errorf("units[%d]: gram ratio must be 1", i)
		}
	}
	return nil
}

// RecipeIngredient one ingredient line of a generated recipe
type RecipeIngredient struct {
	Name     string   `json:"name"`
	Amount   *float64 `json:"amount"`
	UnitCode string   `json:"unit_code"`
	Note     string   `json:"note"`
}

// RecipeSkeleton generated recipe
type RecipeSkeleton struct {
	Title                  string             `json:"title"`
	Difficulty             string             `json:"difficulty"`
	PreparationTimeMinutes *int               `json:"preparation_time_minutes"`
	Servings               *float64           `json:"servings"`
	MealCategories         []string           `json:"meal_categories"`
	Ingredients            []RecipeIngredient `json:"ingredients"`
	Instructions           []string           `json:"instructions"`
}

func (r *RecipeSkeleton) Shape() string { return "recipe_skeleton" }

func (r *RecipeSkeleton) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if r.Difficulty != "" {
		if _, ok := ParseDifficulty(r.Difficulty); !ok {
			return fmt.Errorf("unknown difficulty %q", r.Difficulty)
		}
	}
	if len(r.Ingredients) == 0 {
		return fmt.Errorf("at least one ingredient is required")
	}
	for i, ing := range r.Ingredients {
		if strings.TrimSpace(ing.Name) == "" {
			return fmt.Errorf("ingredients[%d]: name is required", i)
		}
		if !IsUnitCode(ing.UnitCode) {
			return fmt.Errorf("ingredients[%d]: unknown unit code %q", i, ing.UnitCode)
		}
		if ing.Amount != nil && *ing.Amount < 0 {
			return fmt.Errorf("ingredients[%d]: negative amount", i)
		}
	}
	if r.Servings != nil && *r.Servings < 0 {
		return fmt.Errorf("negative servings")
	}
	return nil
}

// PlannedMeal one meal of a generated plan
type PlannedMeal struct {
	Slot           string   `json:"slot"`
	Title          string   `json:"title"`
	Servings       *float64 `json:"servings"`
	MealCategories []string `json:"meal_categories"`
	Notes          string   `json:"notes"`
}

// PlanDay meals of one date (YYYY-MM-DD)
type PlanDay struct {
	Date  string        `json:"date"`
	Meals []PlannedMeal `json:"meals"`
}

// MealPlanSkeleton generated meal plan
type MealPlanSkeleton struct {
	Name             string    `json:"name"`
	TargetKcalPerDay *int      `json:"target_kcal_per_day"`
	Days             []PlanDay `json:"days"`
}

func (m *MealPlanSkeleton) Shape() string { return "meal_plan_skeleton" }

func (m *MealPlanSkeleton) Validate() error {
	if len(m.Days) == 0 {
		return fmt.Errorf("at least one day is required")
	}
	for i, d := range m.Days {
		if _, err := time.Parse(DateLayout, d.Date); err != nil {
			return fmt.Errorf("days[%d]: invalid date %q", i, d.Date)
		}
	}
	return nil
}

// DateLayout date format used by meal plans
const DateLayout = "2006-01-02"
