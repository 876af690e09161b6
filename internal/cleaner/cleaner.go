package cleaner

import (
	"errors"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ignite/partd-ssri/internal/cms"
	"github.com/ignite/partd-ssri/internal/config"
)

var (
	// ErrNoRows is returned when cleaning runs on an empty extract or when
	// every row is filtered out.
	ErrNoRows = errors.New("no rows survived cleaning")
)

// AggregatedRecord is one (state, drug group) cell of the cleaned dataset.
type AggregatedRecord struct {
	State       string
	Group       string
	TotalClaims int64
}

// Normalize canonicalizes a raw text value: surrounding whitespace is
// trimmed and the result upper-cased. Applying it twice changes nothing.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CoerceClaims parses a claim count. Fractional values like "100.0" are
// truncated toward zero; non-numeric, missing, or negative values count
// as 0 rather than failing the row.
func CoerceClaims(s string) int64 {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		n = int64(f)
	}
	if n < 0 {
		return 0
	}
	return n
}

// Mapping resolves generic and brand drug names to their reporting group.
type Mapping struct {
	generics map[string]string
	brands   map[string]string
}

// NewMapping builds the name lookup from the configured drug groups.
func NewMapping(groups []config.DrugGroup) *Mapping {
	m := &Mapping{
		generics: make(map[string]string, len(groups)),
		brands:   make(map[string]string, len(groups)),
	}
	for _, g := range groups {
		m.generics[Normalize(g.Generic)] = g.Label
		m.brands[Normalize(g.Brand)] = g.Label
	}
	return m
}

// Resolve returns the group label for a row. The generic name is checked
// first, then the brand name; a miss on both means the row is not a drug
// of interest.
func (m *Mapping) Resolve(generic, brand string) (string, bool) {
	if label, ok := m.generics[Normalize(generic)]; ok {
		return label, true
	}
	if label, ok := m.brands[Normalize(brand)]; ok {
		return label, true
	}
	return "", false
}

type cellKey struct {
	state string
	group string
}

// CleanAndAggregate normalizes raw rows, maps them to drug groups, keeps
// only rows from the target states, and sums claims by (state, group).
// Rows that match no group are dropped silently. The result is sorted by
// state then group so repeated runs produce identical output.
func CleanAndAggregate(raw []cms.RawRecord, mapping *Mapping, states []string) ([]AggregatedRecord, error) {
	if len(raw) == 0 {
		return nil, ErrNoRows
	}

	targets := make(map[string]bool, len(states))
	for _, s := range states {
		targets[Normalize(s)] = true
	}

	totals := make(map[cellKey]int64)
	kept := 0
	for _, rec := range raw {
		group, ok := mapping.Resolve(rec.GenericName, rec.BrandName)
		if !ok {
			continue
		}
		state := Normalize(rec.State)
		if !targets[state] {
			continue
		}
		totals[cellKey{state: state, group: group}] += CoerceClaims(rec.TotalClaims)
		kept++
	}

	if len(totals) == 0 {
		return nil, ErrNoRows
	}

	records := make([]AggregatedRecord, 0, len(totals))
	for key, claims := range totals {
		records = append(records, AggregatedRecord{State: key.state, Group: key.group, TotalClaims: claims})
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].State != records[j].State {
			return records[i].State < records[j].State
		}
		return records[i].Group < records[j].Group
	})

	log.Printf("[cleaner] kept %d of %d rows across %d state/group cells", kept, len(raw), len(records))
	return records, nil
}
