// Package nutrition turns recipe lines into a per-serving nutrition profile.
package nutrition

import (
	"context"
	"errors"

	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RatioFinder direct (ingredient, unit) ratio lookup
type RatioFinder interface {
	FindRatio(ctx context.Context, ingredientID, unitID uint) (*ingredient.UnitRatio, error)
}

// Line one recipe ingredient line; any field may be missing.
type Line struct {
	Ingredient *ingredient.Ingredient
	Unit       *ingredient.Unit
	Amount     *float64
}

// Profile per-serving macros; nil means unknown
type Profile struct {
	Kcal    *float64 `json:"kcal"`
	Protein *float64 `json:"protein"`
	Carbs   *float64 `json:"carbs"`
	Fat     *float64 `json:"fat"`
}

// Aggregator computes per-serving nutrition
type Aggregator struct {
	ratios RatioFinder
}

// NewAggregator creates an Aggregator
func NewAggregator(ratios RatioFinder) *Aggregator {
	return &Aggregator{ratios: ratios}
}

type totals struct {
	kcal, protein, carbs, fat float64
}

// Compute sums usable lines and divides by max(1, servings). Lines that cannot
// be converted to grams are skipped; a recipe without lines has an unknown profile.
func (a *Aggregator) Compute(ctx context.Context, lines []Line, servings *float64) Profile {
	if len(lines) == 0 {
		return Profile{}
	}

	var t totals
	for i, line := range lines {
		grams, ok, err := a.grams(ctx, line)
		if err != nil {
			common.LogWarn("ratio lookup failed, skipping recipe line", zap.Int("line", i), zap.Error(err))
			continue
		}
		if !ok {
			common.LogDebug("skipping recipe line", zap.Int("line", i))
			continue
		}
		factor := grams / 100
		ing := line.Ingredient
		t.kcal += common.Float64Value(ing.Kcal) * factor
		t.protein += common.Float64Value(ing.Protein) * factor
		t.carbs += common.Float64Value(ing.Carbs) * factor
		t.fat += common.Float64Value(ing.Fat) * factor
	}

	divisor := 1.0
	if servings != nil && *servings > 1 {
		divisor = *servings
	}
	return Profile{
		Kcal:    perServing(t.kcal, divisor),
		Protein: perServing(t.protein, divisor),
		Carbs:   perServing(t.carbs, divisor),
		Fat:     perServing(t.fat, divisor),
	}
}

// grams converts a line to grams. ok is false for lines that must be skipped;
// err is only set for storage failures.
func (a *Aggregator) grams(ctx context.Context, line Line) (grams float64, ok bool, err error) {
	if line.Ingredient == nil || line.Unit == nil || line.Amount == nil || !(*line.Amount > 0) {
		return 0, false, nil
	}
	if !line.Ingredient.HasMacros() {
		return 0, false, nil
	}
	if ingredient.IsGramEquivalent(line.Unit.Code) {
		return *line.Amount, true, nil
	}

	ratio, err := a.ratios.FindRatio(ctx, line.Ingredient.ID, line.Unit.ID)
	if err != nil {
		if errors.Is(err, common.ErrRatioNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	if !(ratio.Ratio > 0) {
		return 0, false, nil
	}
	return *line.Amount * ratio.Ratio, true, nil
}

// perServing rounds half away from zero to two decimals.
func perServing(total, divisor float64) *float64 {
	v, _ := decimal.NewFromFloat(total).
		Div(decimal.NewFromFloat(divisor)).
		Round(2).
		Float64()
	return &v
}
