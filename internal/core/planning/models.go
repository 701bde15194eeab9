package planning

import (
	"time"

	"meal-planner/internal/core/recipe"
)

// MealPlan a dated range of meal entries
type MealPlan struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	Name             string      `gorm:"not null" json:"name"`
	StartDate        time.Time   `gorm:"not null" json:"start_date"`
	EndDate          time.Time   `gorm:"not null" json:"end_date"`
	MealsPerDay      int         `gorm:"not null;default:3" json:"meals_per_day"`
	TargetKcalPerDay *int        `json:"target_kcal_per_day"`
	Entries          []MealEntry `gorm:"foreignKey:MealPlanID;constraint:OnDelete:CASCADE" json:"entries"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// MealEntry one recipe in one slot of one day. A plan holds at most one entry
// per (date, slot).
type MealEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	MealPlanID uint           `gorm:"not null;uniqueIndex:idx_plan_date_slot" json:"meal_plan_id"`
	Date       time.Time      `gorm:"not null;uniqueIndex:idx_plan_date_slot" json:"date"`
	Slot       string         `gorm:"not null;size:16;uniqueIndex:idx_plan_date_slot" json:"slot"`
	RecipeID   uint           `gorm:"not null;index" json:"recipe_id"`
	Recipe     *recipe.Recipe `gorm:"foreignKey:RecipeID" json:"recipe,omitempty"`
	Servings   float64        `gorm:"not null;default:1" json:"servings"`
}

// Covers reports whether day lies inside the plan range.
func (p *MealPlan) Covers(day time.Time) bool {
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// Models tables owned by this package, in migration order
func Models() []interface{} {
	return []interface{}{
		&MealPlan{},
		&MealEntry{},
	}
}
