package pokemon

import (
	"encoding/json"
	"fmt"
)

// Map converts a raw API object into a Record.
// A missing hp, attack, defense or speed stat fails with ErrMissingStat;
// there is no zero default.
func Map(raw Raw) (Record, error) {
	stats := make(map[string]int, len(raw.Stats))
	for _, s := range raw.Stats {
		// first entry wins if the API ever repeats a stat
		if _, seen := stats[s.Stat.Name]; !seen {
			stats[s.Stat.Name] = s.BaseStat
		}
	}

	lookup := func(name string) (int, error) {
		v, ok := stats[name]
		if !ok {
			return 0, fmt.Errorf("%w: %q (pokemon %d)", ErrMissingStat, name, raw.ID)
		}
		return v, nil
	}

	hp, err := lookup(StatHP)
	if err != nil {
		return Record{}, err
	}
	attack, err := lookup(StatAttack)
	if err != nil {
		return Record{}, err
	}
	defense, err := lookup(StatDefense)
	if err != nil {
		return Record{}, err
	}
	speed, err := lookup(StatSpeed)
	if err != nil {
		return Record{}, err
	}

	types := make([]string, 0, len(raw.Types))
	for _, t := range raw.Types {
		types = append(types, t.Type.Name)
	}

	rec := Record{
		ID:      raw.ID,
		Name:    raw.Name,
		Types:   types,
		Height:  raw.Height,
		Weight:  raw.Weight,
		HP:      hp,
		Attack:  attack,
		Defense: defense,
		Speed:   speed,
	}
	if raw.Sprites.FrontDefault != nil {
		rec.Sprite = *raw.Sprites.FrontDefault
	}

	if err := Validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate checks the record invariants.
func Validate(r Record) error {
	switch {
	case r.ID <= 0:
		return fmt.Errorf("%w: id must be positive (got %d)", ErrInvalidRecord, r.ID)
	case r.Name == "":
		return fmt.Errorf("%w: pokemon %d has no name", ErrInvalidRecord, r.ID)
	case len(r.Types) == 0:
		return fmt.Errorf("%w: pokemon %d has no types", ErrInvalidRecord, r.ID)
	case r.Height < 0, r.Weight < 0, r.HP < 0, r.Attack < 0, r.Defense < 0, r.Speed < 0:
		return fmt.Errorf("%w: pokemon %d has a negative attribute", ErrInvalidRecord, r.ID)
	}
	for _, t := range r.Types {
		if t == "" {
			return fmt.Errorf("%w: pokemon %d has an empty type name", ErrInvalidRecord, r.ID)
		}
	}
	return nil
}

// Decode parses a /pokemon/{id} response body and maps it to a Record.
func Decode(body []byte) (Record, error) {
	var raw Raw
	if err := json.Unmarshal(body, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return Map(raw)
}

// DecodeFor decodes body and checks that it describes the requested id.
func DecodeFor(id int, body []byte) (Record, error) {
	rec, err := Decode(body)
	if err != nil {
		return Record{}, fmt.Errorf("decode pokemon %d: %w", id, err)
	}
	if rec.ID != id {
		return Record{}, fmt.Errorf("%w: requested %d, response has %d", ErrIDMismatch, id, rec.ID)
	}
	return rec, nil
}
