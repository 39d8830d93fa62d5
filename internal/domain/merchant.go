package domain

import "strings"

// Merchant is a canonical merchant entity. Aliases accumulate over time
// as new raw statement descriptors resolve to the same merchant;
// deduplication is case-insensitive.
type Merchant struct {
	ID            string
	CanonicalName string
	Aliases       []string
	Category      string
}

// HasAlias reports whether the merchant already knows the given raw
// descriptor, ignoring case.
func (m *Merchant) HasAlias(raw string) bool {
	for _, a := range m.Aliases {
		if strings.EqualFold(a, raw) {
			return true
		}
	}
	return false
}

// AddAlias appends a raw descriptor to the alias set unless an equal
// alias (case-insensitive) is already present. Returns true if added.
func (m *Merchant) AddAlias(raw string) bool {
	if raw == "" || m.HasAlias(raw) {
		return false
	}
	m.Aliases = append(m.Aliases, raw)
	return true
}
