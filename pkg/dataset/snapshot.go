package dataset

import (
	"fmt"
	"slices"
	"time"

	"github.com/Sternrassler/pokedash/pkg/pokemon"
)

// Snapshot is the immutable result of one successful load.
// Records are ordered by id; callers must not modify them.
type Snapshot struct {
	LoadID     string
	Records    []pokemon.Record
	StartedAt  time.Time
	FinishedAt time.Time

	byID map[int]pokemon.Record
}

// NewSnapshot indexes records by id. Records are sorted by id; a repeated id
// fails with ErrDuplicateID.
func NewSnapshot(records []pokemon.Record) (*Snapshot, error) {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b pokemon.Record) int {
		return a.ID - b.ID
	})

	byID := make(map[int]pokemon.Record, len(sorted))
	for _, r := range sorted {
		if _, ok := byID[r.ID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		byID[r.ID] = r
	}

	return &Snapshot{
		Records: sorted,
		byID:    byID,
	}, nil
}

// Get returns the record with the given id.
func (s *Snapshot) Get(id int) (pokemon.Record, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Duration returns how long the load took.
func (s *Snapshot) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
