package generation

import "strings"

// GramCode is the canonical mass unit; its ratio is always 1.
const GramCode = "g"

// UnitCodes unit codes the backend is allowed to emit
var UnitCodes = []string{GramCode, "ml", "piece", "tbsp", "tsp", "cup"}

// Difficulty recipe difficulty
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Slot meal slot within a day
type Slot string

const (
	SlotBreakfast Slot = "BREAKFAST"
	SlotLunch     Slot = "LUNCH"
	SlotDinner    Slot = "DINNER"
	SlotSnack     Slot = "SNACK"
)

// IsUnitCode reports whether code (any case) belongs to the unit vocabulary.
func IsUnitCode(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, c := range UnitCodes {
		if c == code {
			return true
		}
	}
	return false
}

// ParseDifficulty matches s case-insensitively against the difficulty vocabulary.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToUpper(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	}
	return "", false
}

// ParseSlot matches s case-insensitively against the meal slot vocabulary.
func ParseSlot(s string) (Slot, bool) {
	switch sl := Slot(strings.ToUpper(strings.TrimSpace(s))); sl {
	case SlotBreakfast, SlotLunch, SlotDinner, SlotSnack:
		return sl, true
	}
	return "", false
}
