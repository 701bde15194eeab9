package common

import (
	"github.com/google/uuid"
)

// GenerateUUID returns a random UUID string
func GenerateUUID() string {
	return uuid.New().String()
}

// Float64Ptr returns a pointer to v
func Float64Ptr(v float64) *float64 {
	return &v
}

// Float64Value dereferences p, treating nil as zero
func Float64Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
