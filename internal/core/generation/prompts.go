package generation

import (
	"fmt"
	"strings"
	"time"
)

const (
	systemStrictJSON = "You are a culinary data assistant. Return ONLY strict JSON. No code fences, no markdown, no explanations."
	systemRecipe     = "You are a culinary recipe generator. Return ONLY valid JSON. No code fences or commentary."
	systemPlanner    = "You are a meal planning assistant. Return ONLY valid JSON. No code fences or commentary."
)

// Prompt one chat completion request
type Prompt struct {
	System      string
	User        string
	Temperature float64
}

const ingredientProfileTemplate = `GOAL:
Produce a concise, factual profile for the ingredient named: %q.

RULES:
- Output MUST be valid JSON with NO trailing commas, NO comments, NO additional fields.
- Use numbers for quantities, not strings.
- Keep names simple and commonly used (e.g. "mozzarella", "olive oil").
- Nutrition is PER 100g, also for liquids.
- Units may ONLY use these codes: [%s].
- Ratios convert ONE non-gram unit to grams (toUnitCode is always "g").
- Do NOT include an entry for "g" in "ratios".
- Omit units and ratios that do not make sense for the ingredient.

CATEGORY (pick the simplest that fits):
"Dairy","Meat","Fish & Seafood","Vegetables","Fruits","Grains & Cereals",
"Legumes","Nuts & Seeds","Oils & Fats","Herbs & Spices","Condiments",
"Beverages","Sweeteners","Other"

JSON SHAPE:
{
  "name": "string",
  "category": "string",
  "nutrition": {"kcal": number, "protein": number, "carbs": number, "fat": number, "fiber": number, "sugar": number},
  "units": [{"code": "g|ml|piece|tbsp|tsp|cup", "display": "string or null"}],
  "ratios": [{"fromUnitCode": "ml|piece|tbsp|tsp|cup", "toUnitCode": "g", "factor": number}]
}`

const unitRatioTemplate = `TASK:
For the given ingredient, list a few COMMON non-gram units and provide grams per ONE unit.

RULES:
- Allowed unit_code: "ml","piece","tbsp","tsp","cup".
- Include only units that make sense.
- No extra fields.

JSON SHAPE:
{
  "ingredient": "string",
  "units": [{"unit_code": "ml|piece|tbsp|tsp|cup", "grams_per_unit": number}]
}

Ingredient: %q`

const recipeTemplate = `TASK:
Create a single cooking recipe that best matches this request:
%q

RULES:
- Output STRICT JSON ONLY.
- Keep ingredient names simple and commonly used (e.g. "chicken breast", "onion").
- Use only these unit codes for ingredients: [%s].
- Difficulty must be one of: "EASY","MEDIUM","HARD".
- preparation_time_minutes is total active prep + cook time (integer).
- servings is a number.
- meal_categories: a small list of category names, or ["Unknown"] if unsure.
- ingredients.amount MUST be a number; for optional items use 0 and add a note.
- instructions: concise step-by-step strings without numbering.
- Respect dietary constraints mentioned in the request.

JSON SHAPE:
{
  "title": "string",
  "difficulty": "EASY|MEDIUM|HARD",
  "preparation_time_minutes": integer,
  "servings": number,
  "meal_categories": ["string"],
  "ingredients": [{"name": "string", "amount": number, "unit_code": "g|ml|piece|tbsp|tsp|cup", "note": "string or null"}],
  "instructions": ["string"]
}`

const mealPlanTemplate = `TASK:
Plan meals from %s to %s inclusive, %d meal(s) per day.
%s
RULES:
- Output STRICT JSON ONLY.
- date format is YYYY-MM-DD and every date lies inside the range.
- slot is one of "BREAKFAST","LUNCH","DINNER","SNACK".
- title is a short dish name; servings is a number.

JSON SHAPE:
{
  "name": "string",
  "target_kcal_per_day": integer,
  "days": [{"date": "YYYY-MM-DD", "meals": [{"slot": "BREAKFAST|LUNCH|DINNER|SNACK", "title": "string", "servings": number, "meal_categories": ["string"], "notes": "string"}]}]
}`

func quotedUnitCodes() string {
	quoted := make([]string, len(UnitCodes))
	for i, c := range UnitCodes {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ",")
}

func ingredientProfilePrompt(name string, temperature float64) Prompt {
	return Prompt{
		System:      systemStrictJSON,
		User:        fmt.Sprintf(ingredientProfileTemplate, name, quotedUnitCodes()),
		Temperature: temperature,
	}
}

func unitRatioPrompt(ingredient string, temperature float64) Prompt {
	return Prompt{
		System:      systemStrictJSON,
		User:        fmt.Sprintf(unitRatioTemplate, ingredient),
		Temperature: temperature,
	}
}

func recipePrompt(request string, temperature float64) Prompt {
	return Prompt{
		System:      systemRecipe,
		User:        fmt.Sprintf(recipeTemplate, request, quotedUnitCodes()),
		Temperature: temperature,
	}
}

// MealPlanRequest inputs for a generated plan
type MealPlanRequest struct {
	StartDate        time.Time
	EndDate          time.Time
	MealsPerDay      int
	TargetKcalPerDay *int
	Preferences      []string
	Goal             string
}

func mealPlanPrompt(req MealPlanRequest, temperature float64) Prompt {
	var extra strings.Builder
	if req.TargetKcalPerDay != nil {
		fmt.Fprintf(&extra, "Target about %d kcal per day.\n", *req.TargetKcalPerDay)
	}
	if len(req.Preferences) > 0 {
		fmt.Fprintf(&extra, "Respect these preferences: %s.\n", strings.Join(req.Preferences, ", "))
	}
	if req.Goal != "" {
		fmt.Fprintf(&extra, "Goal: %s.\n", req.Goal)
	}
	return Prompt{
		System: systemPlanner,
		User: fmt.Sprintf(mealPlanTemplate,
			req.StartDate.Format(DateLayout),
			req.EndDate.Format(DateLayout),
			req.MealsPerDay,
			extra.String(),
		),
		Temperature: temperature,
	}
}
