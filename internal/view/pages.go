package view

import (
	"embed"
	"html/template"
	"slices"

	"github.com/Sternrassler/pokedash/pkg/dataset"
	"github.com/Sternrassler/pokedash/pkg/filter"
	"github.com/Sternrassler/pokedash/pkg/pokemon"
	"github.com/Sternrassler/pokedash/pkg/stats"
)

// loadingRefreshSeconds is the reload interval of the loading page.
const loadingRefreshSeconds = 2

//go:embed templates/*.html
var templatesFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"weight":    pokemon.FormatWeight,
	"kilograms": pokemon.FormatKilograms,
	"typeLabel": pokemon.TypeLabel,
	"speedy":    func() int { return stats.SpeedyThreshold },
}).ParseFS(templatesFS, "templates/*.html"))

// dashboardPage is the data for dashboard.html.
type dashboardPage struct {
	LoadID      string
	Stats       stats.Stats
	Criteria    filter.Criteria
	Types       []string
	WeightSteps []int
	Records     []pokemon.Record
	Total       int
	Shown       int
}

func newDashboardPage(snap *dataset.Snapshot, criteria filter.Criteria) dashboardPage {
	shown := filter.Apply(snap.Records, criteria)

	// An off-step min_weight from the URL still needs a selected option.
	steps := filter.WeightSteps()
	if !slices.Contains(steps, criteria.MinWeight) {
		steps = append(steps, criteria.MinWeight)
		slices.Sort(steps)
	}

	return dashboardPage{
		LoadID:      snap.LoadID,
		Stats:       stats.Compute(snap.Records),
		Criteria:    criteria,
		Types:       filter.Types(snap.Records),
		WeightSteps: steps,
		Records:     shown,
		Total:       snap.Len(),
		Shown:       len(shown),
	}
}

// TypeHref links to the dashboard filtered by type t, keeping the other criteria.
func (p dashboardPage) TypeHref(t string) string {
	c := p.Criteria
	c.Type = t
	if q := c.Query().Encode(); q != "" {
		return "/?" + q
	}
	return "/"
}

// errorPage is the data for error.html.
type errorPage struct {
	Status  dataset.Status
	Message string
}
