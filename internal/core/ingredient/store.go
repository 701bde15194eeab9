package ingredient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meal-planner/internal/core/normalize"
	"meal-planner/internal/pkg/common"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persistence for ingredients, categories, units and ratios
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction runs fn against a Store bound to one database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Category").
		Preload("UnitRatios.Unit")
}

// FindByID loads an ingredient with its category and ratios.
func (s *Store) FindByID(ctx context.Context, id uint) (*Ingredient, error) {
	var ing Ingredient
	if err := s.preloaded(ctx).First(&ing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.Wrap(fmt.Errorf("ingredient %d", id))
		}
		return nil, fmt.Errorf("failed to load ingredient %d: %w", id, err)
	}
	return &ing, nil
}

// findByKey returns nil without error when no row matches.
func (s *Store) findByKey(ctx context.Context, key string) (*Ingredient, error) {
	var ings []Ingredient
	if err := s.preloaded(ctx).Where("name_key = ?", key).Limit(1).Find(&ings).Error; err != nil {
		return nil, fmt.Errorf("failed to look up ingredient %q: %w", key, err)
	}
	if len(ings) == 0 {
		return nil, nil
	}
	return &ings[0], nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchContains lists ingredients whose key contains q; limit <= 0 means unbounded.
func (s *Store) searchContains(ctx context.Context, q string, limit int) ([]Ingredient, error) {
	query := s.preloaded(ctx).
		Where(`name_key LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(q)+"%").
		Order("name")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var ings []Ingredient
	if err := query.Find(&ings).Error; err != nil {
		return nil, fmt.Errorf("failed to search ingredients: %w", err)
	}
	return ings, nil
}

// CreateIngredient inserts ing unless its name key is taken. On conflict the
// existing row is returned and created is false.
func (s *Store) CreateIngredient(ctx context.Context, ing *Ingredient) (result *Ingredient, created bool, err error) {
	if ing.NameKey == "" {
		ing.NameKey = normalize.Name(ing.Name)
	}
	res := s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_key"}},
			DoNothing: true,
		}).
		Create(ing)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to create ingredient %q: %w", ing.Name, res.Error)
	}

	if res.RowsAffected == 0 {
		existing, err := s.findByKey(ctx, ing.NameKey)
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("ingredient %q vanished after conflict", ing.NameKey)
		}
		return existing, false, nil
	}

	loaded, err := s.FindByID(ctx, ing.ID)
	if err != nil {
		return nil, false, err
	}
	return loaded, true, nil
}

// FindOrCreateCategory resolves a category by name, case-insensitively.
func (s *Store) FindOrCreateCategory(ctx context.Context, name string) (*Category, error) {
	key := normalize.Name(name)
	if key == "" {
		return nil, common.ErrInvalidRequest.Wrap(errors.New("blank category name"))
	}

	cat := Category{Name: normalize.Display(name), NameKey: key}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_key"}},
			DoNothing: true,
		}).
		Create(&cat).Error; err != nil {
		return nil, fmt.Errorf("failed to create category %q: %w", name, err)
	}

	var found Category
	if err := s.db.WithContext(ctx).Where("name_key = ?", key).First(&found).Error; err != nil {
		return nil, fmt.Errorf("failed to load category %q: %w", name, err)
	}
	return &found, nil
}
