package recipe

import (
	"time"

	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/core/nutrition"
)

// Source where a recipe came from
type Source string

const (
	SourceManual Source = "MANUAL"
	SourceAI     Source = "AI"
)

// MealCategory e.g. "Dinner", "Vegetarian"
type MealCategory struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"not null" json:"name"`
	NameKey string `gorm:"uniqueIndex;not null;size:255" json:"-"`
}

// Recipe with derived per-serving nutrition. Kcal, Protein, Carbs and Fat are
// written only by recomputation.
type Recipe struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Title                  string         `gorm:"not null" json:"title"`
	Difficulty             string         `json:"difficulty,omitempty"`
	PreparationTimeMinutes *int           `json:"preparation_time_minutes,omitempty"`
	Servings               *float64       `json:"servings"`
	Instructions           string         `gorm:"type:text" json:"instructions"`
	Source                 Source         `gorm:"not null;default:MANUAL" json:"source"`
	MealCategories         []MealCategory `gorm:"many2many:recipe_meal_categories" json:"meal_categories"`
	Lines                  []Line         `gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE" json:"lines"`
	Kcal                   *float64       `json:"kcal"`
	Protein                *float64       `json:"protein"`
	Carbs                  *float64       `json:"carbs"`
	Fat                    *float64       `json:"fat"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// Line one ingredient line of a recipe
type Line struct {
	ID           uint                   `gorm:"primaryKey" json:"id"`
	RecipeID     uint                   `gorm:"not null;index" json:"-"`
	Position     int                    `gorm:"not null" json:"position"`
	IngredientID *uint                  `json:"ingredient_id"`
	Ingredient   *ingredient.Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	UnitID       *uint                  `json:"unit_id"`
	Unit         *ingredient.Unit       `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Amount       *float64               `json:"amount"`
	Note         string                 `json:"note,omitempty"`
}

// TableName keeps lines in their own table
func (Line) TableName() string {
	return "recipe_lines"
}

// Nutrition returns the stored per-serving profile.
func (r *Recipe) Nutrition() nutrition.Profile {
	return nutrition.Profile{
		Kcal:    r.Kcal,
		Protein: r.Protein,
		Carbs:   r.Carbs,
		Fat:     r.Fat,
	}
}

// Models tables owned by this package, in migration order
func Models() []interface{} {
	return []interface{}{
		&MealCategory{},
		&Recipe{},
		&Line{},
	}
}
