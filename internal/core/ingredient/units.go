package ingredient

import (
	"context"
	"errors"
	"fmt"
	"math"

	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/normalize"
	"meal-planner/internal/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GramCode code of the canonical mass unit
const GramCode = generation.GramCode

var gramEquivalents = map[string]bool{
	"g":     true,
	"gram":  true,
	"grams": true,
	"gr":    true,
}

// IsGramEquivalent reports whether code already expresses mass in grams.
func IsGramEquivalent(code string) bool {
	return gramEquivalents[normalize.UnitCode(code)]
}

// FindUnit looks a unit up by code, case-insensitively.
func (s *Store) FindUnit(ctx context.Context, code string) (*Unit, error) {
	var unit Unit
	err := s.db.WithContext(ctx).Where("code = ?", normalize.UnitCode(code)).First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrUnitNotFound.Wrap(fmt.Errorf("unit %q", code))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load unit %q: %w", code, err)
	}
	return &unit, nil
}

// EnsureUnit returns the unit for code, creating it when absent. A blank
// display defaults to the code.
func (s *Store) EnsureUnit(ctx context.Context, code, display string) (*Unit, error) {
	norm := normalize.UnitCode(code)
	if norm == "" {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("unit code is blank"))
	}

	unit, err := s.FindUnit(ctx, norm)
	if err == nil {
		return unit, nil
	}
	if !errors.Is(err, common.ErrUnitNotFound) {
		return nil, err
	}

	if normalize.IsBlank(display) {
		display = norm
	}
	created := Unit{Code: norm, DisplayName: display}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).
		Create(&created).Error; err != nil {
		return nil, fmt.Errorf("failed to create unit %q: %w", norm, err)
	}
	return s.FindUnit(ctx, norm)
}

// FindRatio is a direct lookup of the (ingredient, unit) row. Ratios are
// never derived through a third unit.
func (s *Store) FindRatio(ctx context.Context, ingredientID, unitID uint) (*UnitRatio, error) {
	var ratio UnitRatio
	err := s.db.WithContext(ctx).
		Preload("Unit").
		Where("ingredient_id = ? AND unit_id = ?", ingredientID, unitID).
		First(&ratio).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrRatioNotFound.Wrap(fmt.Errorf("ingredient %d, unit %d", ingredientID, unitID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ratio: %w", err)
	}
	return &ratio, nil
}

// Ratios lists every ratio row of an ingredient.
func (s *Store) Ratios(ctx context.Context, ingredientID uint) ([]UnitRatio, error) {
	var ratios []UnitRatio
	if err := s.db.WithContext(ctx).
		Preload("Unit").
		Where("ingredient_id = ?", ingredientID).
		Order("unit_id").
		Find(&ratios).Error; err != nil {
		return nil, fmt.Errorf("failed to list ratios: %w", err)
	}
	return ratios, nil
}

// UpsertRatio sets grams-per-unit for (ingredient, unit). The gram row of the
// ingredient is written alongside so it always exists once any ratio does.
func (s *Store) UpsertRatio(ctx context.Context, ingredientID uint, unit *Unit, gramsPerUnit float64) (*UnitRatio, error) {
	if unit == nil {
		return nil, common.ErrInvalidRatio.Wrap(errors.New("unit is required"))
	}
	if math.IsNaN(gramsPerUnit) || math.IsInf(gramsPerUnit, 0) || gramsPerUnit <= 0 {
		return nil, common.ErrInvalidRatio.Wrap(fmt.Errorf("grams per %s must be positive, got %v", unit.Code, gramsPerUnit))
	}
	if unit.Code == GramCode && gramsPerUnit != 1 {
		return nil, common.ErrInvalidRatio.Wrap(fmt.Errorf("gram ratio must be 1, got %v", gramsPerUnit))
	}

	var out *UnitRatio
	err := s.Transaction(ctx, func(tx *Store) error {
		gram, err := tx.EnsureUnit(ctx, GramCode, "gram")
		if err != nil {
			return err
		}
		if err := tx.writeRatio(ctx, ingredientID, gram.ID, 1); err != nil {
			return err
		}
		if unit.ID != gram.ID {
			if err := tx.writeRatio(ctx, ingredientID, unit.ID, gramsPerUnit); err != nil {
				return err
			}
		}
		out, err = tx.FindRatio(ctx, ingredientID, unit.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EnsureGramRatio writes the 1.0 gram row for an ingredient.
func (s *Store) EnsureGramRatio(ctx context.Context, ingredientID uint) (*UnitRatio, error) {
	gram, err := s.EnsureUnit(ctx, GramCode, "gram")
	if err != nil {
		return nil, err
	}
	return s.UpsertRatio(ctx, ingredientID, gram, 1)
}

func (s *Store) writeRatio(ctx context.Context, ingredientID, unitID uint, ratio float64) error {
	row := UnitRatio{IngredientID: ingredientID, UnitID: unitID, Ratio: ratio}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ingredient_id"}, {Name: "unit_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"ratio", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write ratio: %w", err)
	}
	return nil
}
