// Package filter narrows a record set by name, type and minimum weight.
package filter

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/Sternrassler/pokedash/pkg/pokemon"
)

// AllTypes disables the type predicate.
const AllTypes = "all"

// Weight control bounds, in API units (tenths of a kilogram).
const (
	MaxWeightStep = 2000
	WeightStep    = 50
)

// ErrInvalidCriteria is returned by ParseCriteria for unusable parameters.
var ErrInvalidCriteria = errors.New("invalid filter criteria")

// Criteria are the user-selected filter parameters. All predicates apply
// conjunctively.
type Criteria struct {
	// Search is a case-insensitive substring of the name; empty matches all
	Search string `json:"search"`

	// Type must be one of the record's types exactly, or AllTypes
	Type string `json:"type"`

	// MinWeight in API units; records lighter than this are excluded
	MinWeight int `json:"min_weight"`
}

// DefaultCriteria matches every record.
func DefaultCriteria() Criteria {
	return Criteria{Type: AllTypes}
}

// Matches reports whether r satisfies every predicate of c.
func (c Criteria) Matches(r pokemon.Record) bool {
	if c.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(c.Search)) {
		return false
	}
	if c.Type != "" && c.Type != AllTypes && !r.HasType(c.Type) {
		return false
	}
	return r.Weight >= c.MinWeight
}

// Apply returns the records matching c, preserving input order.
// The input slice is not modified.
func Apply(records []pokemon.Record, c Criteria) []pokemon.Record {
	out := make([]pokemon.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Types returns the distinct types across records, sorted lexicographically.
func Types(records []pokemon.Record) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for _, t := range r.Types {
			seen[t] = struct{}{}
		}
	}

	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// WeightSteps returns the selectable minimum weights, 0 to MaxWeightStep.
func WeightSteps() []int {
	steps := make([]int, 0, MaxWeightStep/WeightStep+1)
	for w := 0; w <= MaxWeightStep; w += WeightStep {
		steps = append(steps, w)
	}
	return steps
}

// ParseCriteria reads the search, type and min_weight query parameters.
// Missing parameters fall back to DefaultCriteria. search and type are used
// verbatim; an empty type means AllTypes.
func ParseCriteria(values url.Values) (Criteria, error) {
	c := DefaultCriteria()

	c.Search = values.Get("search")

	if t := values.Get("type"); t != "" {
		c.Type = t
	}

	if raw := strings.TrimSpace(values.Get("min_weight")); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil {
			return Criteria{}, fmt.Errorf("%w: min_weight %q is not an integer", ErrInvalidCriteria, raw)
		}
		if w < 0 {
			return Criteria{}, fmt.Errorf("%w: min_weight must be >= 0 (got %d)", ErrInvalidCriteria, w)
		}
		c.MinWeight = w
	}

	return c, nil
}

// Query encodes c as URL query parameters, omitting defaults.
func (c Criteria) Query() url.Values {
	values := url.Values{}
	if c.Search != "" {
		values.Set("search", c.Search)
	}
	if c.Type != "" && c.Type != AllTypes {
		values.Set("type", c.Type)
	}
	if c.MinWeight > 0 {
		values.Set("min_weight", strconv.Itoa(c.MinWeight))
	}
	return values
}
