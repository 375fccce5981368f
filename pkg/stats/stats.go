// Package stats computes summary statistics over a loaded record set.
package stats

import (
	"math"

	"github.com/Sternrassler/pokedash/pkg/pokemon"
)

// SpeedyThreshold is the minimum speed (inclusive) counted as speedy.
const SpeedyThreshold = 100

// Stats holds the dashboard summary for a record set.
type Stats struct {
	// Total number of records
	Total int `json:"total"`

	// AvgAttack is the mean attack, rounded to the nearest integer
	AvgAttack int `json:"avg_attack"`

	// MaxHP is the highest HP in the set
	MaxHP int `json:"max_hp"`

	// SpeedyCount is the number of records with Speed >= SpeedyThreshold
	SpeedyCount int `json:"speedy_count"`

	// AvgWeight is the mean weight in whole kilograms, rounded
	AvgWeight int `json:"avg_weight"`
}

// Compute derives Stats from records. An empty set yields the zero Stats.
func Compute(records []pokemon.Record) Stats {
	if len(records) == 0 {
		return Stats{}
	}

	var s Stats
	var sumAttack, sumWeight int
	for _, r := range records {
		sumAttack += r.Attack
		sumWeight += r.Weight
		s.MaxHP = max(s.MaxHP, r.HP)
		if r.Speed >= SpeedyThreshold {
			s.SpeedyCount++
		}
	}

	n := float64(len(records))
	s.Total = len(records)
	s.AvgAttack = int(math.Round(float64(sumAttack) / n))
	s.AvgWeight = int(math.Round(float64(sumWeight) / n / 10))

	return s
}
