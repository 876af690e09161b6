package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/osteele/liquid"

	"github.com/ignite/partd-ssri/internal/analyzer"
)

// summaryTemplate is the Liquid source for the markdown findings report.
const summaryTemplate = `# SSRI Prescription Claims Analysis ({{ year }})

Generated {{ generated_at }} from {{ grand_total | comma }} total claims
across {{ state_count }} states and {{ group_count }} drug groups.

## Finding 1: Overall State Ranking

| Rank | State | Total Claims |
|------|-------|--------------|
{% for row in state_ranking %}| {{ row.rank }} | {{ row.state }} | {{ row.claims | comma }} |
{% endfor %}
## Finding 2: Overall SSRI Market Share

| Drug Group | Total Claims | Share |
|------------|--------------|-------|
{% for row in drug_ranking %}| {{ row.group }} | {{ row.claims | comma }} ({{ row.claims | millions }}) | {{ row.share }}% |
{% endfor %}
## Finding 3: Highest Prescribing State per Drug

{% for row in leaders %}- **{{ row.group }}**: {{ row.state }} ({{ row.claims | comma }} claims)
{% endfor %}`

// SummaryRenderer renders the markdown findings report through a Liquid
// engine with report-scoped filters.
type SummaryRenderer struct {
	engine *liquid.Engine
	year   string
}

// NewSummaryRenderer creates a renderer for the given data year.
func NewSummaryRenderer(year string) *SummaryRenderer {
	engine := liquid.NewEngine()

	// {{ 1234567 | comma }} -> "1,234,567"
	engine.RegisterFilter("comma", func(value interface{}) string {
		return Comma(toInt64(value))
	})

	// {{ 1234567 | millions }} -> "1.2M"
	engine.RegisterFilter("millions", func(value interface{}) string {
		return fmt.Sprintf("%.1fM", float64(toInt64(value))/million)
	})

	return &SummaryRenderer{engine: engine, year: year}
}

// Render produces the markdown summary for one analysis report.
func (r *SummaryRenderer) Render(rep *analyzer.Report) (string, error) {
	stateRows := make([]map[string]interface{}, 0, len(rep.StateRanking))
	for _, row := range rep.StateRanking {
		stateRows = append(stateRows, map[string]interface{}{
			"rank":   row.Rank,
			"state":  row.State,
			"claims": row.TotalClaims,
		})
	}

	drugRows := make([]map[string]interface{}, 0, len(rep.DrugRanking))
	for _, row := range rep.DrugRanking {
		drugRows = append(drugRows, map[string]interface{}{
			"group":  row.Group,
			"claims": row.TotalClaims,
			"share":  fmt.Sprintf("%.1f", row.Share),
		})
	}

	leaderRows := make([]map[string]interface{}, 0, len(rep.Leaders))
	for _, row := range rep.Leaders {
		leaderRows = append(leaderRows, map[string]interface{}{
			"group":  row.Group,
			"state":  row.State,
			"claims": row.TotalClaims,
		})
	}

	bindings := map[string]interface{}{
		"year":          r.year,
		"generated_at":  time.Now().UTC().Format("2006-01-02 15:04 UTC"),
		"grand_total":   rep.GrandTotal,
		"state_count":   len(rep.States),
		"group_count":   len(rep.Groups),
		"state_ranking": stateRows,
		"drug_ranking":  drugRows,
		"leaders":       leaderRows,
	}

	out, err := r.engine.ParseAndRenderString(summaryTemplate, bindings)
	if err != nil {
		return "", fmt.Errorf("failed to render summary template: %w", err)
	}
	return out, nil
}

// WriteSummary renders the summary and writes it to path.
func (r *SummaryRenderer) WriteSummary(rep *analyzer.Report, path string) error {
	out, err := r.Render(rep)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// Comma formats n with thousands separators.
func Comma(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := ""
	if n < 0 {
		neg, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return neg + s
}

func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
