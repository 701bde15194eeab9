package ingredient

import (
	"context"
	"errors"
	"math"
	"testing"

	"meal-planner/internal/infrastructure/database"
	"meal-planner/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(Models()...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newTestDB(t))
}

func seedIngredient(t *testing.T, s *Store, name string, kcal float64) *Ingredient {
	t.Helper()
	ing, created, err := s.CreateIngredient(context.Background(), &Ingredient{
		Name: name,
		Kcal: common.Float64Ptr(kcal),
	})
	require.NoError(t, err)
	require.True(t, created)
	return ing
}

func countIngredients(t *testing.T, s *Store) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.db.Model(&Ingredient{}).Count(&n).Error)
	return n
}

func TestCreateIngredientConflictReturnsExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := seedIngredient(t, s, "Olive oil", 884)

	again, created, err := s.CreateIngredient(ctx, &Ingredient{Name: "  OLIVE   oil"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "Olive oil", again.Name)
	assert.Equal(t, int64(1), countIngredients(t, s))
}

func TestFindOrCreateCategoryIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.FindOrCreateCategory(ctx, "oils & fats")
	require.NoError(t, err)
	b, err := s.FindOrCreateCategory(ctx, "OILS & FATS")
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "Oils & fats", b.Name)

	_, err = s.FindOrCreateCategory(ctx, "  ")
	assert.True(t, errors.Is(err, common.ErrInvalidRequest))
}

func TestFindByIDNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.FindByID(context.Background(), 42)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestEnsureUnitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tbsp, err := s.EnsureUnit(ctx, " TBSP ", "Tablespoon")
	require.NoError(t, err)
	assert.Equal(t, "tbsp", tbsp.Code)
	assert.Equal(t, "Tablespoon", tbsp.DisplayName)

	again, err := s.EnsureUnit(ctx, "tbsp", "")
	require.NoError(t, err)
	assert.Equal(t, tbsp.ID, again.ID)
	assert.Equal(t, "Tablespoon", again.DisplayName)

	cup, err := s.EnsureUnit(ctx, "cup", "")
	require.NoError(t, err)
	assert.Equal(t, "cup", cup.DisplayName)

	_, err = s.EnsureUnit(ctx, " ", "")
	assert.Error(t, err)
}

func TestUpsertRatioRejectsInvalidValues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ing := seedIngredient(t, s, "Flour", 364)
	cup, err := s.EnsureUnit(ctx, "cup", "")
	require.NoError(t, err)
	gram, err := s.EnsureUnit(ctx, "g", "gram")
	require.NoError(t, err)

	for _, v := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		_, err := s.UpsertRatio(ctx, ing.ID, cup, v)
		assert.True(t, errors.Is(err, common.ErrInvalidRatio), "ratio %v", v)
	}

	_, err = s.UpsertRatio(ctx, ing.ID, gram, 2)
	assert.True(t, errors.Is(err, common.ErrInvalidRatio))

	ratios, err := s.Ratios(ctx, ing.ID)
	require.NoError(t, err)
	assert.Empty(t, ratios)
}

func TestUpsertRatioKeepsGramRowAtOne(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ing := seedIngredient(t, s, "Olive oil", 884)
	tbsp, err := s.EnsureUnit(ctx, "tbsp", "")
	require.NoError(t, err)

	r, err := s.UpsertRatio(ctx, ing.ID, tbsp, 13.5)
	require.NoError(t, err)
	assert.Equal(t, 13.5, r.Ratio)

	gram, err := s.FindUnit(ctx, "G")
	require.NoError(t, err)
	g, err := s.FindRatio(ctx, ing.ID, gram.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g.Ratio)

	r, err = s.UpsertRatio(ctx, ing.ID, tbsp, 14)
	require.NoError(t, err)
	assert.Equal(t, 14.0, r.Ratio)

	ratios, err := s.Ratios(ctx, ing.ID)
	require.NoError(t, err)
	assert.Len(t, ratios, 2)
}

func TestFindRatioIsDirectOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ing := seedIngredient(t, s, "Milk", 42)
	ml, err := s.EnsureUnit(ctx, "ml", "")
	require.NoError(t, err)
	cup, err := s.EnsureUnit(ctx, "cup", "")
	require.NoError(t, err)

	_, err = s.UpsertRatio(ctx, ing.ID, ml, 1.03)
	require.NoError(t, err)

	_, err = s.FindRatio(ctx, ing.ID, cup.ID)
	assert.True(t, errors.Is(err, common.ErrRatioNotFound))
}

func TestIsGramEquivalent(t *testing.T) {
	for _, code := range []string{"g", "G", "gram", "grams", " gr "} {
		assert.True(t, IsGramEquivalent(code), code)
	}
	for _, code := range []string{"kg", "ml", "tbsp", ""} {
		assert.False(t, IsGramEquivalent(code), code)
	}
}
