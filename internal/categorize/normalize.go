// Package categorize assigns canonical merchants and spending
// categories to transactions. Matching runs cheapest-first: exact
// alias lookup, then fuzzy matching, then an AI fallback gated by a
// per-user call quota.
package categorize

import "strings"

// noiseTokens are stripped from raw merchant strings before matching.
// Statement descriptors bury the merchant name in POS markers, card
// network names, and domain suffixes.
var noiseTokens = []string{
	"#", "*", "-", "_", "payment", "purchase", "pos", "debit", "credit",
	"visa", "mastercard", "online", "www.", ".com", ".ca", ".net",
}

// NormalizeText lowercases a raw merchant string, strips noise tokens,
// and collapses whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, tok := range noiseTokens {
		s = strings.ReplaceAll(s, tok, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}
