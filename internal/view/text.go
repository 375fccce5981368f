package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Sternrassler/pokedash/pkg/dataset"
	"github.com/Sternrassler/pokedash/pkg/filter"
	"github.com/Sternrassler/pokedash/pkg/pokemon"
	"github.com/Sternrassler/pokedash/pkg/stats"
)

// RenderText writes the stat summary and the filtered listing as aligned
// plain text.
func RenderText(w io.Writer, snap *dataset.Snapshot, st stats.Stats, criteria filter.Criteria) error {
	shown := filter.Apply(snap.Records, criteria)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Pokemon Data Dashboard")
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Total Pokemon\t%d\n", st.Total)
	fmt.Fprintf(tw, "Avg Attack\t%d\n", st.AvgAttack)
	fmt.Fprintf(tw, "Max HP\t%d\n", st.MaxHP)
	fmt.Fprintf(tw, "Speedy Pokemon (Speed >= %d)\t%d\n", stats.SpeedyThreshold, st.SpeedyCount)
	fmt.Fprintf(tw, "Avg Weight\t%s\n", pokemon.FormatKilograms(st.AvgWeight))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nShowing %d of %d Pokemon\n\n", len(shown), snap.Len())
	if len(shown) == 0 {
		_, err := fmt.Fprintln(w, "No Pokemon found matching your filters")
		return err
	}

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPES\tHP\tATTACK\tDEFENSE\tSPEED\tWEIGHT")
	for _, r := range shown {
		fmt.Fprintf(tw, "#%d\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID, r.Name, strings.Join(r.Types, ","), r.HP, r.Attack, r.Defense, r.Speed, pokemon.FormatWeight(r.Weight))
	}
	return tw.Flush()
}
