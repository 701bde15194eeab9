package ingredient

import (
	"time"
)

// Category ingredient category, e.g. "Oils & Fats"
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	NameKey   string    `gorm:"uniqueIndex;not null;size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Ingredient canonical ingredient with per-100 g nutrition
type Ingredient struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Name       string      `gorm:"not null" json:"name"`
	NameKey    string      `gorm:"uniqueIndex;not null;size:255" json:"-"`
	CategoryID *uint       `json:"category_id,omitempty"`
	Category   *Category   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Kcal       *float64    `json:"kcal"`
	Protein    *float64    `json:"protein"`
	Carbs      *float64    `json:"carbs"`
	Fat        *float64    `json:"fat"`
	Fiber      *float64    `json:"fiber"`
	Sugar      *float64    `json:"sugar"`
	UnitRatios []UnitRatio `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE" json:"unit_ratios,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// HasMacros reports whether any of kcal, protein, carbs or fat is known.
func (i *Ingredient) HasMacros() bool {
	return i.Kcal != nil || i.Protein != nil || i.Carbs != nil || i.Fat != nil
}

// Unit measurement unit; Code is stored lowercase
type Unit struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Code        string `gorm:"uniqueIndex;not null;size:32" json:"code"`
	DisplayName string `gorm:"not null" json:"display_name"`
}

// UnitRatio grams represented by one Unit of an Ingredient
type UnitRatio struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	IngredientID uint      `gorm:"not null;uniqueIndex:idx_ingredient_unit" json:"ingredient_id"`
	UnitID       uint      `gorm:"not null;uniqueIndex:idx_ingredient_unit" json:"unit_id"`
	Unit         *Unit     `gorm:"foreignKey:UnitID" json:"unit,omitempty"`
	Ratio        float64   `gorm:"not null" json:"ratio"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Models tables owned by this package, in migration order
func Models() []interface{} {
	return []interface{}{
		&Category{},
		&Unit{},
		&Ingredient{},
		&UnitRatio{},
	}
}
