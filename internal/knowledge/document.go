// Package knowledge holds the static knowledge base and the fuzzy retrieval
// engine that decides whether a free-text question can be answered from it.
package knowledge

import "strings"

// Category groups documents by topic.
type Category string

const (
	CategoryInsurance  Category = "insurance"
	CategoryMedication Category = "medication"
	CategoryBilling    Category = "billing"
)

// ParseCategory accepts the canonical names plus the plural "medications".
// An empty string is the zero Category (no filter).
func ParseCategory(raw string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(raw))); c {
	case "":
		return "", true
	case CategoryInsurance, CategoryMedication, CategoryBilling:
		return c, true
	case "medications":
		return CategoryMedication, true
	default:
		return "", false
	}
}

// Document is one immutable knowledge-base entry.
type Document struct {
	ID        string   `json:"id" yaml:"id"`
	Category  Category `json:"category" yaml:"category"`
	Title     string   `json:"title" yaml:"title"`
	Body      string   `json:"body" yaml:"body"`
	Phrasings []string `json:"phrasings,omitempty" yaml:"phrasings"`
}
