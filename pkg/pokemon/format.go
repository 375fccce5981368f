package pokemon

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FormatWeight renders a weight in hectograms as kilograms with one decimal,
// e.g. 69 -> "6.9 kg".
func FormatWeight(hectograms int) string {
	return fmt.Sprintf("%.1f kg", float64(hectograms)/10)
}

// FormatKilograms renders a whole number of kilograms, e.g. 45 -> "45 kg".
func FormatKilograms(kg int) string {
	return fmt.Sprintf("%d kg", kg)
}

// TypeLabel returns the display label of a type name, e.g. "grass" -> "Grass".
func TypeLabel(t string) string {
	// Casers keep state, so one per call.
	return cases.Title(language.English).String(t)
}
