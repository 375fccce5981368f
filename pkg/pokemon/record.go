// Package pokemon defines the normalized Pokémon record and the mapper that
// builds it from raw PokeAPI responses.
package pokemon

import (
	"slices"
)

// Record is the flat, normalized view of one Pokémon.
// Records are immutable once created; callers must not modify Types.
type Record struct {
	// ID is the PokeAPI identifier (1-based, unique within a data set)
	ID int `json:"id"`

	// Name is the lowercase PokeAPI name (e.g. "bulbasaur")
	Name string `json:"name"`

	// Types in API order, never empty
	Types []string `json:"types"`

	// Height in decimetres
	Height int `json:"height"`

	// Weight in hectograms (tenths of a kilogram)
	Weight int `json:"weight"`

	HP      int `json:"hp"`
	Attack  int `json:"attack"`
	Defense int `json:"defense"`
	Speed   int `json:"speed"`

	// Sprite is the front default sprite URL, empty when the API has none
	Sprite string `json:"sprite,omitempty"`
}

// HasType reports whether t is one of the record's types (exact match).
func (r Record) HasType(t string) bool {
	return slices.Contains(r.Types, t)
}
