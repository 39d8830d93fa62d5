package categorize

import "testing"

func TestDefaultAliasTableLoads(t *testing.T) {
	table := DefaultAliasTable()
	if table.Len() == 0 {
		t.Fatal("embedded alias table is empty")
	}
}

func TestLookupExact(t *testing.T) {
	table := DefaultAliasTable()

	m, ok := table.LookupExact("starbucks")
	if !ok {
		t.Fatal("expected exact hit for starbucks")
	}
	if m.Canonical != "Starbucks" || m.Category != "dining" || m.Confidence != 100 {
		t.Errorf("got %+v", m)
	}

	if _, ok := table.LookupExact("some unknown shop"); ok {
		t.Error("unexpected hit for unknown merchant")
	}
}

func TestMatchFuzzy(t *testing.T) {
	table := DefaultAliasTable()

	m, ok := table.MatchFuzzy("starbuks", FuzzyMatchThreshold)
	if !ok {
		t.Fatal("expected fuzzy hit for starbuks")
	}
	if m.Canonical != "Starbucks" {
		t.Errorf("canonical = %q, want Starbucks", m.Canonical)
	}
	if m.Confidence < FuzzyMatchThreshold {
		t.Errorf("confidence = %d, below threshold", m.Confidence)
	}

	if _, ok := table.MatchFuzzy("amz mktp us 1a2b3c", FuzzyMatchThreshold); ok {
		t.Error("cryptic descriptor must not fuzzy match")
	}
}

func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"starbucks", "starbucks", 100},
		{"", "", 100},
		{"abcd", "abce", 75},
		{"abcd", "wxyz", 0},
	}
	for _, c := range cases {
		if got := similarity(c.a, c.b); got != c.want {
			t.Errorf("similarity(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestNewAliasTableBadData(t *testing.T) {
	if _, err := NewAliasTable([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed alias data")
	}
}
