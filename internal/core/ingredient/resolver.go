package ingredient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/normalize"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
)

// defaultCategory is used when a generated profile names no category
const defaultCategory = "Other"

// Generator the generation calls the resolver depends on
type Generator interface {
	GenerateIngredientProfile(ctx context.Context, name string) (*generation.IngredientProfile, error)
	GenerateUnitRatios(ctx context.Context, ingredient string) (*generation.UnitRatioList, error)
}

// Resolver maps free-text names onto persisted ingredients
type Resolver struct {
	store *Store
	gen   Generator
}

// NewResolver creates a Resolver
func NewResolver(store *Store, gen Generator) *Resolver {
	return &Resolver{store: store, gen: gen}
}

// Store exposes the underlying store
func (r *Resolver) Store() *Store {
	return r.store
}

// Lookup finds an existing ingredient without generating one.
func (r *Resolver) Lookup(ctx context.Context, raw string) (*Ingredient, error) {
	if normalize.IsBlank(raw) {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("ingredient name is blank"))
	}
	ing, err := r.store.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	if ing == nil {
		return nil, common.ErrNotFound.Wrap(fmt.Errorf("ingredient %q", raw))
	}
	return ing, nil
}

// Resolve returns the ingredient for raw, generating and persisting a new one
// when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, raw string) (*Ingredient, error) {
	if normalize.IsBlank(raw) {
		return nil, common.ErrIngredientNotResolvable.Wrap(errors.New("ingredient name is blank"))
	}

	ing, err := r.store.lookup(ctx, raw)
	if err != nil {
		return nil, err
	}
	if ing != nil {
		return ing, nil
	}

	name := strings.TrimSpace(raw)
	profile, err := r.gen.GenerateIngredientProfile(ctx, name)
	if err != nil {
		common.LogWarn("ingredient generation failed",
			zap.String("name", name),
			zap.Error(err),
		)
		return nil, common.ErrIngredientNotResolvable.Wrap(fmt.Errorf("%q: %w", name, err))
	}

	var out *Ingredient
	err = r.store.Transaction(ctx, func(tx *Store) error {
		out, err = tx.persistProfile(ctx, profile, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// persistProfile stores a generated ingredient. Losing a concurrent create
// race returns the winner untouched.
func (s *Store) persistProfile(ctx context.Context, p *generation.IngredientProfile, fallbackName string) (*Ingredient, error) {
	catName := strings.TrimSpace(p.Category)
	if catName == "" {
		catName = defaultCategory
	}
	cat, err := s.FindOrCreateCategory(ctx, catName)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = fallbackName
	}
	ing := &Ingredient{
		Name:       normalize.Display(name),
		NameKey:    normalize.Name(name),
		CategoryID: &cat.ID,
	}
	var n generation.Nutrition
	if p.Nutrition != nil {
		n = *p.Nutrition
	}
	ing.Kcal = common.Float64Ptr(common.Float64Value(n.Kcal))
	ing.Protein = common.Float64Ptr(common.Float64Value(n.Protein))
	ing.Carbs = common.Float64Ptr(common.Float64Value(n.Carbs))
	ing.Fat = common.Float64Ptr(common.Float64Value(n.Fat))
	ing.Fiber = common.Float64Ptr(common.Float64Value(n.Fiber))
	ing.Sugar = common.Float64Ptr(common.Float64Value(n.Sugar))

	saved, created, err := s.CreateIngredient(ctx, ing)
	if err != nil {
		return nil, err
	}
	if !created {
		common.LogInfo("ingredient created concurrently, using existing row",
			zap.String("name_key", saved.NameKey),
			zap.Uint("ingredient_id", saved.ID),
		)
		return saved, nil
	}

	for _, u := range p.Units {
		code := normalize.UnitCode(u.Code)
		if !generation.IsUnitCode(code) {
			continue
		}
		if _, err := s.EnsureUnit(ctx, code, u.Display); err != nil {
			return nil, err
		}
	}

	if _, err := s.EnsureGramRatio(ctx, saved.ID); err != nil {
		return nil, err
	}

	for _, ratio := range p.Ratios {
		from := normalize.UnitCode(ratio.FromUnitCode)
		to := normalize.UnitCode(ratio.ToUnitCode)
		if to != GramCode || from == GramCode || !generation.IsUnitCode(from) || !(ratio.Factor > 0) {
			common.LogDebug("dropping generated ratio",
				zap.String("from", ratio.FromUnitCode),
				zap.String("to", ratio.ToUnitCode),
				zap.Float64("factor", ratio.Factor),
			)
			continue
		}
		unit, err := s.EnsureUnit(ctx, from, "")
		if err != nil {
			return nil, err
		}
		if _, err := s.UpsertRatio(ctx, saved.ID, unit, ratio.Factor); err != nil {
			return nil, err
		}
	}

	common.LogInfo("ingredient created",
		zap.String("name", saved.Name),
		zap.Uint("ingredient_id", saved.ID),
		zap.String("category", cat.Name),
	)
	return s.FindByID(ctx, saved.ID)
}

// EnsureRatio returns the (ingredient, unit) ratio, asking the generator for
// unit ratios when a non-gram unit has none yet.
func (r *Resolver) EnsureRatio(ctx context.Context, ing *Ingredient, unit *Unit) (*UnitRatio, error) {
	if ing == nil || unit == nil {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("ingredient and unit are required"))
	}
	if IsGramEquivalent(unit.Code) {
		return r.store.EnsureGramRatio(ctx, ing.ID)
	}

	ratio, err := r.store.FindRatio(ctx, ing.ID, unit.ID)
	if err == nil {
		return ratio, nil
	}
	if !errors.Is(err, common.ErrRatioNotFound) {
		return nil, err
	}

	list, err := r.gen.GenerateUnitRatios(ctx, ing.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to generate unit ratios for %q: %w", ing.Name, err)
	}

	err = r.store.Transaction(ctx, func(tx *Store) error {
		for _, ug := range list.Units {
			code := normalize.UnitCode(ug.UnitCode)
			if code == GramCode {
				continue
			}
			u, err := tx.EnsureUnit(ctx, code, "")
			if err != nil {
				return err
			}
			if _, err := tx.UpsertRatio(ctx, ing.ID, u, ug.GramsPerUnit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.store.FindRatio(ctx, ing.ID, unit.ID)
}
