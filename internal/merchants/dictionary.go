// Package merchants resolves free-text transaction descriptions to a
// canonical merchant name and a spending category.
package merchants

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/normalize"
)

// UnknownStore is returned by ResolveStore for an empty description.
const UnknownStore = "Unknown Store"

// Merchant is one flattened dictionary entry.
type Merchant struct {
	Name     string
	Group    string
	Category string
	needle   string
}

// Pattern is one keyword table row. Keywords are lower case.
type Pattern struct {
	Category    string
	Description string
	Keywords    []string
}

// Dictionary is an immutable, ordered lookup table. Merchant entries are
// checked before keyword patterns; within each table the first match in
// source order wins.
type Dictionary struct {
	merchants []Merchant
	patterns  []Pattern
}

// NewDictionary validates doc and builds the ordered tables from it.
func NewDictionary(doc Document) (*Dictionary, error) {
	d := &Dictionary{}

	for _, g := range doc.Merchants {
		for _, m := range g.Merchants {
			name := strings.TrimSpace(m.Name)
			category := strings.TrimSpace(m.Category)
			if name == "" {
				return nil, fmt.Errorf("group %q: merchant with empty name", g.Name)
			}
			if category == "" {
				return nil, fmt.Errorf("group %q: merchant %q has no category", g.Name, name)
			}
			d.merchants = append(d.merchants, Merchant{
				Name:     name,
				Group:    g.Name,
				Category: category,
				needle:   strings.ToLower(name),
			})
		}
	}

	for _, p := range doc.Patterns {
		category := strings.TrimSpace(p.Category)
		if category == "" {
			return nil, fmt.Errorf("pattern with empty category")
		}
		row := Pattern{Category: category, Description: p.Description}
		for _, kw := range p.Keywords {
			// An empty keyword would match every description.
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				row.Keywords = append(row.Keywords, kw)
			}
		}
		d.patterns = append(d.patterns, row)
	}

	return d, nil
}

// Merchants returns the flattened merchant table in lookup order.
func (d *Dictionary) Merchants() []Merchant {
	return append([]Merchant(nil), d.merchants...)
}

// Patterns returns the keyword table in lookup order.
func (d *Dictionary) Patterns() []Pattern {
	return append([]Pattern(nil), d.patterns...)
}

// Document rebuilds the grouped wire form.
func (d *Dictionary) Document() Document {
	var doc Document
	index := map[string]int{}
	for _, m := range d.merchants {
		i, ok := index[m.Group]
		if !ok {
			i = len(doc.Merchants)
			index[m.Group] = i
			doc.Merchants = append(doc.Merchants, MerchantGroup{Name: m.Group})
		}
		doc.Merchants[i].Merchants = append(doc.Merchants[i].Merchants, MerchantEntry{Name: m.Name, Category: m.Category})
	}
	for _, p := range d.patterns {
		doc.Patterns = append(doc.Patterns, CategoryPattern{
			Category:    p.Category,
			Keywords:    append([]string(nil), p.Keywords...),
			Description: p.Description,
		})
	}
	return doc
}

// LookupMerchant returns the first merchant whose name occurs in description,
// ignoring case.
func (d *Dictionary) LookupMerchant(description string) (Merchant, bool) {
	lower := strings.ToLower(description)
	for _, m := range d.merchants {
		if strings.Contains(lower, m.needle) {
			return m, true
		}
	}
	return Merchant{}, false
}

// storeHeuristics catch chain names that are abbreviated or decorated on
// card statements and so do not contain the dictionary spelling.
var storeHeuristics = []struct {
	pattern *regexp.Regexp
	name    string
}{
	{regexp.MustCompile(`(?i)\bp\s*n\s*p\b|pick\s*'?n\s*'?pay`), "Pick n Pay"},
	{regexp.MustCompile(`(?i)\bwoolies\b|\bww\s*(food|sandton|\d)`), "Woolworths"},
	{regexp.MustCompile(`(?i)\bchkrs\b|\bcheckers\s*hyper`), "Checkers"},
	{regexp.MustCompile(`(?i)\bdis[-\s]?chem\b`), "Dis-Chem"},
	{regexp.MustCompile(`(?i)\bmc\s?d(onald'?s)?\b`), "McDonald's"},
	{regexp.MustCompile(`(?i)\bkfc\b`), "KFC"},
	{regexp.MustCompile(`(?i)\bnando'?s\b`), "Nando's"},
	{regexp.MustCompile(`(?i)\bsbux\b|\bstarbucks\b`), "Starbucks"},
	{regexp.MustCompile(`(?i)\bwimpy\b`), "Wimpy"},
	{regexp.MustCompile(`(?i)\bsteers\b`), "Steers"},
	{regexp.MustCompile(`(?i)\bdebonairs\b`), "Debonairs Pizza"},
	{regexp.MustCompile(`(?i)\bcaltex\b|\bastron\b`), "Astron Energy"},
	{regexp.MustCompile(`(?i)\bmakro\b`), "Makro"},
	{regexp.MustCompile(`(?i)\bapple\.com\b|\bitunes\b`), "Apple"},
	{regexp.MustCompile(`(?i)\bpaypal\s*\*`), "PayPal"},
	{regexp.MustCompile(`(?i)\bgoogle\s*\*`), "Google"},
}

// ResolveStore returns a best-guess merchant name for description: a
// dictionary name contained in it, else a known chain abbreviation, else the
// first two words.
func (d *Dictionary) ResolveStore(description string) string {
	desc := normalize.CollapseSpaces(description)
	if desc == "" {
		return UnknownStore
	}

	if m, ok := d.LookupMerchant(desc); ok {
		return m.Name
	}

	for _, h := range storeHeuristics {
		if h.pattern.MatchString(desc) {
			return h.name
		}
	}

	words := strings.Fields(desc)
	if len(words) >= 2 {
		return words[0] + " " + words[1]
	}
	return words[0]
}

// Categorize returns the category of the first dictionary merchant found in
// description, else the first pattern with a matching keyword, else
// domain.DefaultCategory. It has no side effects.
func (d *Dictionary) Categorize(description string) string {
	if m, ok := d.LookupMerchant(description); ok {
		return m.Category
	}

	lower := strings.ToLower(description)
	for _, p := range d.patterns {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, kw) {
				return p.Category
			}
		}
	}
	return domain.DefaultCategory
}

// Categories lists every category named by the dictionary, merchants first,
// without duplicates.
func (d *Dictionary) Categories() []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, m := range d.merchants {
		add(m.Category)
	}
	for _, p := range d.patterns {
		add(p.Category)
	}
	return out
}
