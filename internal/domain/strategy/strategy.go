// Package strategy models the category labels that group projects for
// distribution analysis. Strategies are created lazily: the first master row
// that references an unseen name creates the entity.
package strategy

import (
	"errors"
	"strings"
)

var (
	// ErrStrategyNotFound indicates the strategy doesn't exist.
	ErrStrategyNotFound = errors.New("strategy not found")
	// ErrEmptyName indicates a blank strategy name.
	ErrEmptyName = errors.New("strategy name must not be empty")
)

// Strategy is a project category. Name keeps the casing of the first
// encounter; NormalizedName is the uniqueness key.
type Strategy struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	NormalizedName string `json:"-"`
	Description    string `json:"description,omitempty"`
	// Deprecated marks a strategy that should no longer be assigned.
	// Strategies referenced by projects are never deleted, only deprecated.
	Deprecated bool `json:"deprecated,omitempty"`
}

// Normalize maps a raw strategy name onto its uniqueness key: surrounding
// whitespace trimmed, inner runs of whitespace collapsed, case folded.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
