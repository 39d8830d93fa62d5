package domain

// CategoryOther is the fallback category assigned when no classification
// path produces a usable result.
const CategoryOther = "other"

// Categories is the fixed spending taxonomy. AI-proposed categories
// outside this set are coerced to CategoryOther.
var Categories = []string{
	"groceries",
	"dining",
	"subscription",
	"transport",
	"rent",
	"travel",
	"utilities",
	"pharmacy",
	"gas",
	"entertainment",
	"shopping",
	CategoryOther,
}

var categorySet = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

// ValidCategory reports whether name is a member of the category enum.
func ValidCategory(name string) bool {
	return categorySet[name]
}
