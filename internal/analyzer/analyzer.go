package analyzer

import (
	"errors"
	"sort"

	"github.com/ignite/partd-ssri/internal/cleaner"
)

var (
	// ErrNoData is returned when analysis runs on an empty dataset.
	ErrNoData = errors.New("no aggregated data to analyze")
)

// StateRank is one row of the overall state ranking. Ranks are dense:
// states with equal totals share a rank and the next distinct total takes
// the previous rank plus one.
type StateRank struct {
	Rank        int
	State       string
	TotalClaims int64
}

// DrugShare is one row of the market-share ranking.
type DrugShare struct {
	Group       string
	TotalClaims int64
	Share       float64 // percent of the grand total
}

// GroupLeader names the state with the most claims for one drug group.
type GroupLeader struct {
	Group       string
	State       string
	TotalClaims int64
}

// Report holds the derived views of one analysis run. States and Groups
// are the matrix axes, sorted ascending; Matrix[i][j] is the claim total
// for States[i] and Groups[j], with cells absent from the data at zero.
type Report struct {
	StateRanking []StateRank
	DrugRanking  []DrugShare
	Leaders      []GroupLeader
	States       []string
	Groups       []string
	Matrix       [][]int64
	GrandTotal   int64
}

// Analyze computes the state ranking, the per-drug market share, and the
// per-drug leading state from aggregated records. The states and groups
// arguments fix the matrix axes, so a target state with no surviving rows
// still appears as an all-zero row rather than vanishing.
func Analyze(rows []cleaner.AggregatedRecord, states, groups []string) (*Report, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	stateAxis := sortedCopy(states)
	groupAxis := sortedCopy(groups)
	stateIdx := indexOf(stateAxis)
	groupIdx := indexOf(groupAxis)

	matrix := make([][]int64, len(stateAxis))
	for i := range matrix {
		matrix[i] = make([]int64, len(groupAxis))
	}

	stateTotals := make(map[string]int64)
	groupTotals := make(map[string]int64)
	var grand int64

	for _, row := range rows {
		stateTotals[row.State] += row.TotalClaims
		groupTotals[row.Group] += row.TotalClaims
		grand += row.TotalClaims

		si, sok := stateIdx[row.State]
		gi, gok := groupIdx[row.Group]
		if sok && gok {
			matrix[si][gi] += row.TotalClaims
		}
	}

	report := &Report{
		StateRanking: rankStates(stateTotals),
		DrugRanking:  rankGroups(groupTotals, grand),
		States:       stateAxis,
		Groups:       groupAxis,
		Matrix:       matrix,
		GrandTotal:   grand,
	}
	report.Leaders = findLeaders(matrix, stateAxis, groupAxis)

	return report, nil
}

// rankStates orders states by total descending and assigns dense ranks.
// Ties are broken alphabetically for output stability but share a rank.
func rankStates(totals map[string]int64) []StateRank {
	ranking := make([]StateRank, 0, len(totals))
	for state, total := range totals {
		ranking = append(ranking, StateRank{State: state, TotalClaims: total})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].TotalClaims != ranking[j].TotalClaims {
			return ranking[i].TotalClaims > ranking[j].TotalClaims
		}
		return ranking[i].State < ranking[j].State
	})

	rank := 0
	for i := range ranking {
		if i == 0 || ranking[i].TotalClaims != ranking[i-1].TotalClaims {
			rank++
		}
		ranking[i].Rank = rank
	}
	return ranking
}

// rankGroups orders drug groups by total descending and attaches each
// group's share of the grand total.
func rankGroups(totals map[string]int64, grand int64) []DrugShare {
	shares := make([]DrugShare, 0, len(totals))
	for group, total := range totals {
		share := 0.0
		if grand > 0 {
			share = float64(total) * 100 / float64(grand)
		}
		shares = append(shares, DrugShare{Group: group, TotalClaims: total, Share: share})
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].TotalClaims != shares[j].TotalClaims {
			return shares[i].TotalClaims > shares[j].TotalClaims
		}
		return shares[i].Group < shares[j].Group
	})
	return shares
}

// findLeaders takes the arg-max down each group column. The first state in
// axis order wins a tie. Columns that are entirely zero produce no leader.
func findLeaders(matrix [][]int64, stateAxis, groupAxis []string) []GroupLeader {
	leaders := make([]GroupLeader, 0, len(groupAxis))
	for j, group := range groupAxis {
		best := -1
		var bestClaims int64
		for i := range stateAxis {
			if matrix[i][j] > bestClaims {
				bestClaims = matrix[i][j]
				best = i
			}
		}
		if best >= 0 {
			leaders = append(leaders, GroupLeader{Group: group, State: stateAxis[best], TotalClaims: bestClaims})
		}
	}
	return leaders
}

func sortedCopy(values []string) []string {
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}

func indexOf(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}
