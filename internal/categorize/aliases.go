package categorize

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

//go:embed merchant_aliases.json
var defaultAliasData []byte

type aliasEntry struct {
	Canonical string   `json:"canonical"`
	Category  string   `json:"category"`
	Aliases   []string `json:"aliases"`
}

// AliasTable maps known merchant aliases to their canonical name and
// category. It is immutable after construction and safe for concurrent
// use.
type AliasTable struct {
	entries    map[string]aliasEntry
	aliasToKey map[string]string
	aliases    []string // sorted, for deterministic fuzzy scans
}

// Match is an alias table hit.
type Match struct {
	Canonical  string
	Category   string
	Confidence int // 0-100
}

// NewAliasTable builds a table from raw JSON alias data.
func NewAliasTable(data []byte) (*AliasTable, error) {
	var entries map[string]aliasEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("NewAliasTable: decoding alias data: %w", err)
	}

	t := &AliasTable{
		entries:    entries,
		aliasToKey: make(map[string]string),
	}
	for key, e := range entries {
		t.aliasToKey[strings.ToLower(e.Canonical)] = key
		for _, a := range e.Aliases {
			t.aliasToKey[strings.ToLower(a)] = key
		}
	}
	for a := range t.aliasToKey {
		t.aliases = append(t.aliases, a)
	}
	sort.Strings(t.aliases)
	return t, nil
}

// DefaultAliasTable loads the embedded alias data.
func DefaultAliasTable() *AliasTable {
	t, err := NewAliasTable(defaultAliasData)
	if err != nil {
		// The embedded data is validated by tests; a decode failure here
		// is a build defect.
		panic(fmt.Sprintf("categorize: embedded alias data invalid: %v", err))
	}
	return t
}

// LoadAliasTable reads alias data from a JSON file, for deployments
// that maintain their own merchant list.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("LoadAliasTable: reading %s: %w", path, err)
	}
	return NewAliasTable(data)
}

// Len reports the number of merchant entries.
func (t *AliasTable) Len() int { return len(t.entries) }

// LookupExact returns the entry whose canonical name or alias equals
// the normalized input.
func (t *AliasTable) LookupExact(normalized string) (Match, bool) {
	key, ok := t.aliasToKey[normalized]
	if !ok {
		return Match{}, false
	}
	e := t.entries[key]
	return Match{Canonical: e.Canonical, Category: e.Category, Confidence: 100}, true
}

// MatchFuzzy scans every alias for the best similarity score and
// returns it when the score meets threshold.
func (t *AliasTable) MatchFuzzy(normalized string, threshold int) (Match, bool) {
	if normalized == "" {
		return Match{}, false
	}

	bestScore := 0
	bestAlias := ""
	for _, alias := range t.aliases {
		score := similarity(normalized, alias)
		if score > bestScore {
			bestScore = score
			bestAlias = alias
		}
	}
	if bestScore < threshold {
		return Match{}, false
	}

	e := t.entries[t.aliasToKey[bestAlias]]
	return Match{Canonical: e.Canonical, Category: e.Category, Confidence: bestScore}, true
}

// similarity scores two strings 0-100 from their edit distance
// relative to the longer string.
func similarity(a, b string) int {
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (longest - dist) / longest
}
