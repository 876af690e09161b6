package report

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/ignite/partd-ssri/internal/analyzer"
)

// Chart file names are part of the output contract; the report consumers
// reference them by name.
const (
	stateRankingFile = "01_state_ranking_total_ssri.png"
	stackedFile      = "02_stacked_ssri_breakdown_by_state.png"
	marketShareFile  = "03_overall_ssri_market_share.png"
)

const million = 1e6

// RenderCharts draws the three report figures into visualsDir and returns
// the paths of the files it wrote, in figure order.
func RenderCharts(rep *analyzer.Report, visualsDir string) ([]string, error) {
	if err := os.MkdirAll(visualsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating visuals directory: %w", err)
	}

	written := make([]string, 0, 3)
	for _, fig := range []struct {
		file string
		draw func(*analyzer.Report, string) error
	}{
		{stateRankingFile, stateRankingChart},
		{stackedFile, stackedBreakdownChart},
		{marketShareFile, marketShareChart},
	} {
		path := filepath.Join(visualsDir, fig.file)
		if err := fig.draw(rep, path); err != nil {
			return written, fmt.Errorf("failed to render %s: %w", fig.file, err)
		}
		log.Printf("[report] saved %s", path)
		written = append(written, path)
	}
	return written, nil
}

// stateRankingChart is a vertical bar chart of total claims per state,
// states ordered by total descending, values in millions.
func stateRankingChart(rep *analyzer.Report, path string) error {
	p := plot.New()
	p.Title.Text = "Figure 1: Total SSRI Prescriptions by State"
	p.X.Label.Text = "State Abbreviation"
	p.Y.Label.Text = "Total Claims (Millions)"

	values := make(plotter.Values, len(rep.StateRanking))
	states := make([]string, len(rep.StateRanking))
	for i, row := range rep.StateRanking {
		values[i] = float64(row.TotalClaims) / million
		states[i] = row.State
	}

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(states...)
	return p.Save(9*vg.Inch, 6*vg.Inch, path)
}

// stackedBreakdownChart is an absolute stacked bar chart, one bar per state
// in axis order, one segment per drug group. The legend carries the short
// drug names.
func stackedBreakdownChart(rep *analyzer.Report, path string) error {
	p := plot.New()
	p.Title.Text = "Figure 2: Total SSRI Claims Breakdown by State"
	p.X.Label.Text = "State Abbreviation"
	p.Y.Label.Text = "Total Claims (Millions)"
	p.Legend.Top = true

	// Segments stack bottom-up, so draw the groups in reverse order and
	// stack each new chart on the previous one.
	var prev *plotter.BarChart
	for j := len(rep.Groups) - 1; j >= 0; j-- {
		values := make(plotter.Values, len(rep.States))
		for i := range rep.States {
			values[i] = float64(rep.Matrix[i][j]) / million
		}

		bars, err := plotter.NewBarChart(values, vg.Points(55))
		if err != nil {
			return err
		}
		bars.Color = plotutil.Color(j)
		bars.LineStyle.Width = 0
		if prev != nil {
			bars.StackOn(prev)
		}
		prev = bars

		p.Add(bars)
		p.Legend.Add(ShortDrugName(rep.Groups[j]), bars)
	}

	p.NominalX(rep.States...)
	return p.Save(14*vg.Inch, 8*vg.Inch, path)
}

// marketShareChart is a horizontal bar chart of total claims per drug group
// across all states, smallest at the bottom so the market leader lands on top.
func marketShareChart(rep *analyzer.Report, path string) error {
	p := plot.New()
	p.Title.Text = "Figure 3: Overall Market Share of 5 SSRIs (Total Claims)"
	p.X.Label.Text = "Total Claims (Millions)"
	p.Y.Label.Text = "Antidepressant Group"

	// DrugRanking is sorted descending; reverse it for the ascending
	// bottom-to-top layout.
	n := len(rep.DrugRanking)
	values := make(plotter.Values, n)
	labels := make([]string, n)
	for i, row := range rep.DrugRanking {
		values[n-1-i] = float64(row.TotalClaims) / million
		labels[n-1-i] = row.Group
	}

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = 0
	bars.Horizontal = true

	p.Add(bars)
	p.NominalY(labels...)
	return p.Save(10*vg.Inch, 7*vg.Inch, path)
}

// ShortDrugName strips the parenthesized brand suffix from a group label:
// "Sertraline (Zoloft)" becomes "Sertraline".
func ShortDrugName(label string) string {
	if i := strings.Index(label, " ("); i >= 0 {
		return label[:i]
	}
	return label
}
