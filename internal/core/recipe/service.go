// Package recipe creates recipes from manual input or generated skeletons and
// keeps their nutrition in sync with their lines.
package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"meal-planner/internal/core/generation"
	"meal-planner/internal/core/ingredient"
	"meal-planner/internal/core/normalize"
	"meal-planner/internal/core/nutrition"
	"meal-planner/internal/pkg/common"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Resolver ingredient resolution used while saving lines
type Resolver interface {
	Resolve(ctx context.Context, raw string) (*ingredient.Ingredient, error)
	EnsureRatio(ctx context.Context, ing *ingredient.Ingredient, unit *ingredient.Unit) (*ingredient.UnitRatio, error)
}

// Generator recipe generation
type Generator interface {
	GenerateRecipe(ctx context.Context, request string) (*generation.RecipeSkeleton, error)
}

// Service recipe workflows
type Service struct {
	db       *gorm.DB
	store    *ingredient.Store
	resolver Resolver
	gen      Generator
	agg      *nutrition.Aggregator
}

// NewService creates a recipe service
func NewService(db *gorm.DB, store *ingredient.Store, resolver Resolver, gen Generator) *Service {
	return &Service{
		db:       db,
		store:    store,
		resolver: resolver,
		gen:      gen,
		agg:      nutrition.NewAggregator(store),
	}
}

// LineInput a line as submitted: an ingredient id or a free-text name
type LineInput struct {
	IngredientID *uint    `json:"ingredient_id"`
	Ingredient   string   `json:"ingredient"`
	UnitCode     string   `json:"unit_code"`
	Amount       *float64 `json:"amount"`
	Note         string   `json:"note"`
}

// CreateInput manual recipe
type CreateInput struct {
	Title                  string      `json:"title" binding:"required"`
	Difficulty             string      `json:"difficulty"`
	PreparationTimeMinutes *int        `json:"preparation_time_minutes"`
	Servings               *float64    `json:"servings"`
	MealCategories         []string    `json:"meal_categories"`
	Instructions           []string    `json:"instructions"`
	Lines                  []LineInput `json:"lines"`
}

func invalid(format string, args ...interface{}) error {
	return common.ErrInvalidRequest.Wrap(fmt.Errorf(format, args...))
}

func (in *CreateInput) validate() error {
	if normalize.IsBlank(in.Title) {
		return invalid("title is required")
	}
	if in.Difficulty != "" {
		if _, ok := generation.ParseDifficulty(in.Difficulty); !ok {
			return invalid("unknown difficulty %q", in.Difficulty)
		}
	}
	if in.Servings != nil && *in.Servings <= 0 {
		return invalid("servings must be positive")
	}
	if in.PreparationTimeMinutes != nil && *in.PreparationTimeMinutes < 0 {
		return invalid("preparation time must not be negative")
	}
	return validateLines(in.Lines)
}

func validateLines(lines []LineInput) error {
	for i, l := range lines {
		if l.IngredientID == nil && normalize.IsBlank(l.Ingredient) {
			return invalid("lines[%d]: ingredient is required", i)
		}
		if l.Amount != nil && *l.Amount < 0 {
			return invalid("lines[%d]: amount must not be negative", i)
		}
	}
	return nil
}

// Get loads a recipe with lines and categories.
func (s *Service) Get(ctx context.Context, id uint) (*Recipe, error) {
	var r Recipe
	err := s.db.WithContext(ctx).
		Preload("MealCategories").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Lines.Ingredient").
		Preload("Lines.Unit").
		First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.ErrNotFound.Wrap(fmt.Errorf("recipe %d", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe %d: %w", id, err)
	}
	return &r, nil
}

// Create stores a manual recipe and computes its nutrition.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	lines, err := s.buildLines(ctx, in.Lines)
	if err != nil {
		return nil, err
	}

	difficulty, _ := generation.ParseDifficulty(in.Difficulty)
	r := &Recipe{
		Title:                  strings.TrimSpace(in.Title),
		Difficulty:             string(difficulty),
		PreparationTimeMinutes: in.PreparationTimeMinutes,
		Servings:               in.Servings,
		Instructions:           joinInstructions(in.Instructions),
		Source:                 SourceManual,
	}
	return s.save(ctx, r, in.MealCategories, lines)
}

// ReplaceLines swaps every line of a recipe and recomputes its nutrition.
func (s *Service) ReplaceLines(ctx context.Context, id uint, inputs []LineInput) (*Recipe, error) {
	if err := validateLines(inputs); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	lines, err := s.buildLines(ctx, inputs)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&Line{}).Error; err != nil {
			return fmt.Errorf("failed to delete lines: %w", err)
		}
		for i := range lines {
			lines[i].RecipeID = id
		}
		if len(lines) > 0 {
			if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
				return fmt.Errorf("failed to create lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Recompute(ctx, id)
}

// Recompute recalculates and stores the per-serving nutrition of a recipe.
func (s *Service) Recompute(ctx context.Context, id uint) (*Recipe, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	lines := make([]nutrition.Line, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = nutrition.Line{Ingredient: l.Ingredient, Unit: l.Unit, Amount: l.Amount}
	}
	p := s.agg.Compute(ctx, lines, r.Servings)

	err = s.db.WithContext(ctx).Model(&Recipe{}).Where("id = ?", id).Updates(map[string]interface{}{
		"kcal":    nullable(p.Kcal),
		"protein": nullable(p.Protein),
		"carbs":   nullable(p.Carbs),
		"fat":     nullable(p.Fat),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to store nutrition: %w", err)
	}
	r.Kcal, r.Protein, r.Carbs, r.Fat = p.Kcal, p.Protein, p.Carbs, p.Fat
	return r, nil
}

// Generate asks the backend for a recipe and saves it.
func (s *Service) Generate(ctx context.Context, request string) (*Recipe, error) {
	if normalize.IsBlank(request) {
		return nil, invalid("prompt is required")
	}
	sk, err := s.gen.GenerateRecipe(ctx, request)
	if err != nil {
		return nil, err
	}
	return s.SaveGenerated(ctx, sk)
}

// SaveGenerated persists a generated skeleton: every ingredient is resolved,
// units are registered and missing ratios are generated where possible.
func (s *Service) SaveGenerated(ctx context.Context, sk *generation.RecipeSkeleton) (*Recipe, error) {
	inputs := make([]LineInput, len(sk.Ingredients))
	for i, ing := range sk.Ingredients {
		inputs[i] = LineInput{
			Ingredient: ing.Name,
			UnitCode:   ing.UnitCode,
			Amount:     ing.Amount,
			Note:       ing.Note,
		}
	}
	lines, err := s.buildLines(ctx, inputs)
	if err != nil {
		return nil, err
	}

	difficulty, _ := generation.ParseDifficulty(sk.Difficulty)
	r := &Recipe{
		Title:                  strings.TrimSpace(sk.Title),
		Difficulty:             string(difficulty),
		PreparationTimeMinutes: sk.PreparationTimeMinutes,
		Servings:               sk.Servings,
		Instructions:           joinInstructions(sk.Instructions),
		Source:                 SourceAI,
	}
	return s.save(ctx, r, sk.MealCategories, lines)
}

// buildLines resolves ingredients and units. Generation happens here, outside
// of any transaction.
func (s *Service) buildLines(ctx context.Context, inputs []LineInput) ([]Line, error) {
	lines := make([]Line, 0, len(inputs))
	for i, in := range inputs {
		var (
			ing *ingredient.Ingredient
			err error
		)
		if in.IngredientID != nil {
			ing, err = s.store.FindByID(ctx, *in.IngredientID)
		} else {
			ing, err = s.resolver.Resolve(ctx, in.Ingredient)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}

		line := Line{
			Position:     i,
			IngredientID: &ing.ID,
			Amount:       in.Amount,
			Note:         strings.TrimSpace(in.Note),
		}
		if !normalize.IsBlank(in.UnitCode) {
			unit, err := s.store.EnsureUnit(ctx, in.UnitCode, "")
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i, err)
			}
			line.UnitID = &unit.ID
			if !ingredient.IsGramEquivalent(unit.Code) {
				if _, err := s.resolver.EnsureRatio(ctx, ing, unit); err != nil {
					common.LogWarn("no gram ratio for recipe line",
						zap.String("ingredient", ing.Name),
						zap.String("unit", unit.Code),
						zap.Error(err),
					)
				}
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) save(ctx context.Context, r *Recipe, categories []string, lines []Line) (*Recipe, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats, err := findOrCreateCategories(ctx, tx, categories)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			return fmt.Errorf("failed to create recipe: %w", err)
		}
		if len(cats) > 0 {
			if err := tx.Model(r).Association("MealCategories").Append(cats); err != nil {
				return fmt.Errorf("failed to link meal categories: %w", err)
			}
		}
		for i := range lines {
			lines[i].RecipeID = r.ID
		}
		if len(lines) > 0 {
			if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
				return fmt.Errorf("failed to create lines: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	common.LogInfo("recipe saved",
		zap.Uint("recipe_id", r.ID),
		zap.String("source", string(r.Source)),
		zap.Int("lines", len(lines)),
	)
	return s.Recompute(ctx, r.ID)
}

// findOrCreateCategories resolves category names case-insensitively, skipping blanks and duplicates.
func findOrCreateCategories(ctx context.Context, tx *gorm.DB, names []string) ([]MealCategory, error) {
	seen := map[string]bool{}
	var out []MealCategory
	for _, name := range names {
		key := normalize.Name(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		cat := MealCategory{Name: normalize.Display(name), NameKey: key}
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name_key"}},
				DoNothing: true,
			}).
			Create(&cat).Error; err != nil {
			return nil, fmt.Errorf("failed to create meal category %q: %w", name, err)
		}
		var found MealCategory
		if err := tx.WithContext(ctx).Where("name_key = ?", key).First(&found).Error; err != nil {
			return nil, fmt.Errorf("failed to load meal category %q: %w", name, err)
		}
		out = append(out, found)
	}
	return out, nil
}

func joinInstructions(steps []string) string {
	kept := make([]string, 0, len(steps))
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "\n")
}

func nullable(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
