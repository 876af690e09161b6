package cleaner

import (
	"errors"
	"testing"

	"github.com/ignite/partd-ssri/internal/cms"
	"github.com/ignite/partd-ssri/internal/config"
)

var targetStates = []string{"CA", "TX", "FL", "NY", "PA"}

func testMapping() *Mapping {
	return NewMapping(config.Default().Pipeline.DrugGroups)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"zoloft", "ZOLOFT"},
		{" ZOLOFT ", "ZOLOFT"},
		{"Zoloft", "ZOLOFT"},
		{"  ca\t", "CA"},
		{"", ""},
	}

	for _, tt := range tests {
		got := Normalize(tt.in)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		// Normalizing twice must change nothing
		if Normalize(got) != got {
			t.Errorf("Normalize(%q) is not idempotent", tt.in)
		}
	}
}

func TestCoerceClaims(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"100.0", 100},
		{"12.9", 12},
		{" 42 ", 42},
		{"abc", 0},
		{"", 0},
		{"-5", 0},
		{"-5.5", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"1,234", 0},
	}

	for _, tt := range tests {
		if got := CoerceClaims(tt.in); got != tt.want {
			t.Errorf("CoerceClaims(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResolveSpellingVariants(t *testing.T) {
	m := testMapping()

	// Every spelling of the same brand name lands in the same group
	variants := []string{"zoloft", " ZOLOFT ", "Zoloft"}
	for _, v := range variants {
		group, ok := m.Resolve("", v)
		if !ok {
			t.Fatalf("Resolve(%q) missed", v)
		}
		if group != "Sertraline (Zoloft)" {
			t.Errorf("Resolve(%q) = %s, want Sertraline (Zoloft)", v, group)
		}
	}
}

func TestResolveGenericWins(t *testing.T) {
	m := testMapping()

	// A row carrying a known generic and a different known brand resolves
	// by the generic name
	group, ok := m.Resolve("SERTRALINE HCL", "PROZAC")
	if !ok {
		t.Fatal("Resolve missed")
	}
	if group != "Sertraline (Zoloft)" {
		t.Errorf("group = %s, want Sertraline (Zoloft)", group)
	}
}

func TestResolveUnknownDrug(t *testing.T) {
	m := testMapping()

	if _, ok := m.Resolve("UNKNOWN DRUG", "NOT AN SSRI"); ok {
		t.Error("Resolve matched an unknown drug")
	}
}

func TestCleanAndAggregate(t *testing.T) {
	raw := []cms.RawRecord{
		{GenericName: "SERTRALINE HCL", BrandName: "ZOLOFT", State: "ca", TotalClaims: "100"},
		{GenericName: "UNKNOWN DRUG", BrandName: "SOMETHING", State: "CA", TotalClaims: "50"},
	}

	records, err := CleanAndAggregate(raw, testMapping(), targetStates)
	if err != nil {
		t.Fatalf("CleanAndAggregate failed: %v", err)
	}

	if len(records) != 1 {
		t.Fatalf("records = %d, want 1 (unknown drug dropped)", len(records))
	}
	got := records[0]
	if got.State != "CA" || got.Group != "Sertraline (Zoloft)" || got.TotalClaims != 100 {
		t.Errorf("record = %+v, want CA / Sertraline (Zoloft) / 100", got)
	}
}

func TestCleanAndAggregateSumsDuplicateCells(t *testing.T) {
	raw := []cms.RawRecord{
		{GenericName: "SERTRALINE HCL", State: "CA", TotalClaims: "100"},
		{GenericName: "sertraline hcl", State: " ca ", TotalClaims: "40"},
		{BrandName: "Zoloft", State: "CA", TotalClaims: "10"},
		{GenericName: "FLUOXETINE HCL", State: "CA", TotalClaims: "7"},
	}

	records, err := CleanAndAggregate(raw, testMapping(), targetStates)
	if err != nil {
		t.Fatalf("CleanAndAggregate failed: %v", err)
	}

	// One row per (state, group) pair, claims summed across all variants
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2", len(records))
	}

	var total int64
	seen := map[string]int64{}
	for _, rec := range records {
		key := rec.State + "/" + rec.Group
		if _, dup := seen[key]; dup {
			t.Errorf("duplicate output cell %s", key)
		}
		seen[key] = rec.TotalClaims
		total += rec.TotalClaims
	}
	if total != 157 {
		t.Errorf("summed claims = %d, want 157", total)
	}
	if seen["CA/Sertraline (Zoloft)"] != 150 {
		t.Errorf("sertraline cell = %d, want 150", seen["CA/Sertraline (Zoloft)"])
	}
	if seen["CA/Fluoxetine (Prozac)"] != 7 {
		t.Errorf("fluoxetine cell = %d, want 7", seen["CA/Fluoxetine (Prozac)"])
	}
}

func TestCleanAndAggregateFiltersStates(t *testing.T) {
	raw := []cms.RawRecord{
		{GenericName: "SERTRALINE HCL", State: "CA", TotalClaims: "1"},
		{GenericName: "SERTRALINE HCL", State: "WA", TotalClaims: "2"},
		{GenericName: "SERTRALINE HCL", State: "OH", TotalClaims: "3"},
		{GenericName: "SERTRALINE HCL", State: "tx", TotalClaims: "4"},
	}

	records, err := CleanAndAggregate(raw, testMapping(), targetStates)
	if err != nil {
		t.Fatalf("CleanAndAggregate failed: %v", err)
	}

	for _, rec := range records {
		switch rec.State {
		case "CA", "TX", "FL", "NY", "PA":
		default:
			t.Errorf("state %s leaked through the filter", rec.State)
		}
	}
	if len(records) != 2 {
		t.Errorf("records = %d, want 2 (CA and TX)", len(records))
	}
}

func TestCleanAndAggregateSortedOutput(t *testing.T) {
	raw := []cms.RawRecord{
		{GenericName: "FLUOXETINE HCL", State: "TX", TotalClaims: "1"},
		{GenericName: "SERTRALINE HCL", State: "CA", TotalClaims: "2"},
		{GenericName: "CITALOPRAM HBR", State: "TX", TotalClaims: "3"},
		{GenericName: "SERTRALINE HCL", State: "TX", TotalClaims: "4"},
	}

	records, err := CleanAndAggregate(raw, testMapping(), targetStates)
	if err != nil {
		t.Fatalf("CleanAndAggregate failed: %v", err)
	}

	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1], records[i]
		if prev.State > cur.State || (prev.State == cur.State && prev.Group > cur.Group) {
			t.Errorf("output not sorted at %d: %+v before %+v", i, prev, cur)
		}
	}
	if records[0].State != "CA" {
		t.Errorf("first state = %s, want CA", records[0].State)
	}
}

func TestCleanAndAggregateEmptyInput(t *testing.T) {
	_, err := CleanAndAggregate(nil, testMapping(), targetStates)
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("err = %v, want ErrNoRows", err)
	}
}

func TestCleanAndAggregateAllFiltered(t *testing.T) {
	raw := []cms.RawRecord{
		{GenericName: "UNKNOWN DRUG", State: "CA", TotalClaims: "5"},
		{GenericName: "SERTRALINE HCL", State: "WA", TotalClaims: "5"},
	}

	_, err := CleanAndAggregate(raw, testMapping(), targetStates)
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("err = %v, want ErrNoRows", err)
	}
}

func TestCleanAndAggregateBadClaimsKeptAsZero(t *testing.T) {
	raw := []cms.RawRecord{
		{GenericName: "SERTRALINE HCL", State: "CA", TotalClaims: "not-a-number"},
		{GenericName: "SERTRALINE HCL", State: "CA", TotalClaims: "30"},
	}

	records, err := CleanAndAggregate(raw, testMapping(), targetStates)
	if err != nil {
		t.Fatalf("CleanAndAggregate failed: %v", err)
	}
	if len(records) != 1 || records[0].TotalClaims != 30 {
		t.Errorf("records = %+v, want one CA cell with 30 claims", records)
	}
}
