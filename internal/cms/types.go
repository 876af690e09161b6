package cms

import (
	"time"
)

// RawRecord is one prescriber/drug row from the Part D dataset, reduced to
// the fields the pipeline consumes. Tot_Clms arrives as a string and is kept
// that way; parsing happens downstream during cleaning.
type RawRecord struct {
	GenericName string `json:"Gnrc_Name"`
	BrandName   string `json:"Brnd_Name"`
	State       string `json:"Prscrbr_State_Abrvtn"`
	TotalClaims string `json:"Tot_Clms"`
}

// StopReason explains why a fetch run stopped paging.
type StopReason string

const (
	// StopExhausted means the API returned a short or empty page.
	StopExhausted StopReason = "exhausted"
	// StopErrored means a page request failed; records collected before the
	// failure are still returned.
	StopErrored StopReason = "errored"
	// StopRowCap means the configured max_rows limit was reached.
	StopRowCap StopReason = "row_cap"
)

// FetchResult carries the rows collected by a fetch run plus how the run ended.
type FetchResult struct {
	RunID      string
	Records    []RawRecord
	Pages      int
	StopReason StopReason
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Manifest records how a raw extract was produced. It is written next to the
// raw CSV so later stages can tell a complete extract from a partial one.
type Manifest struct {
	RunID      string    `json:"run_id"`
	Source     string    `json:"source"`
	Year       string    `json:"year"`
	States     []string  `json:"states"`
	DrugNames  []string  `json:"drug_names"`
	Rows       int       `json:"rows"`
	Pages      int       `json:"pages"`
	StopReason string    `json:"stop_reason"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}
