package topicgraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Report renders a markdown digest of the graph: the top topics by
// multiplier with their strongest connections and exemplar items.
func Report(g *Graph, builtAt time.Time, limit int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Topic engagement report\n\n")
	if !builtAt.IsZero() {
		fmt.Fprintf(&b, "Built %s from %s items; %d topics met the sample floor of %d.\n\n",
			humanize.Time(builtAt), humanize.Comma(int64(g.ItemCount)), len(g.Topics), g.Params.MinimumSampleSize)
	}
	if len(g.Topics) == 0 {
		b.WriteString("_No topic has enough items yet._\n")
		return b.String()
	}

	b.WriteString("| Topic | Items | Multiplier |\n|---|---:|---:|\n")
	top := ByMultiplier{}.Select(g, limit)
	for _, n := range top {
		fmt.Fprintf(&b, "| %s | %d | %.2f× |\n", escapeCell(n.Name), n.ItemCount, n.Multiplier)
	}

	for _, n := range top {
		fmt.Fprintf(&b, "\n## %s\n\n", n.Name)
		if out := g.Outgoing(n.Index); len(out) > 0 {
			b.WriteString("Often appears with:\n\n")
			for _, e := range out {
				fmt.Fprintf(&b, "- %s (%.0f%%)\n", g.Topics[e.Target].Name, e.Weight*100)
			}
			b.WriteString("\n")
		}
		if len(n.Exemplars) > 0 {
			b.WriteString("Top items:\n\n")
			for _, ex := range n.Exemplars {
				fmt.Fprintf(&b, "- `%s` (score %s)\n", ex.ItemID, humanize.Commaf(roundTo(ex.RawScore, 1)))
			}
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func roundTo(v float64, places int) float64 {
	p := 1.0
	for i := 0; i < places; i++ {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
