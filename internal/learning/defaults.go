package learning

import (
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

type keywordRule struct {
	keywords []string
	value    string
}

var descriptionRules = []keywordRule{
	{[]string{"coffee", "cafe"}, "Coffee"},
	{[]string{"petrol", "fuel", "shell", "engen", "sasol", "bp"}, "Petrol"},
	{[]string{"grocery", "supermarket", "pick", "checkers", "woolworths", "spar"}, "Groceries"},
	{[]string{"restaurant", "food", "dining", "mcdonalds", "kfc", "nandos"}, "Food"},
	{[]string{"pharmacy", "dischem", "clicks"}, "Pharmacy"},
	{[]string{"online", "takealot", "take2"}, "Online Purchase"},
}

var categoryRules = []keywordRule{
	{[]string{
		"coffee", "cafe", "restaurant", "food", "dining", "grocery", "supermarket",
		"pick", "checkers", "woolworths", "spar", "mcdonalds", "kfc", "nandos",
	}, "Food"},
	{[]string{"petrol", "gas", "fuel", "shell", "engen", "sasol", "bp", "station"}, "Transport"},
	{[]string{"pharmacy", "dischem", "clicks", "medical", "health"}, "Healthcare"},
	{[]string{"entertainment", "movie", "theater", "netflix", "spotify", "showmax", "dstv"}, "Entertainment"},
	{[]string{
		"electric", "water", "internet", "phone", "bill", "utility",
		"municipality", "rates", "eskom",
	}, "Bills"},
}

// UnknownDescription is used when there is no store name to work from.
const UnknownDescription = "Unknown Purchase"

// DefaultDescription guesses a human friendly description for a store that
// has never been seen, from keywords in its name and then the amount.
func DefaultDescription(store string, amount float64) string {
	if strings.TrimSpace(store) == "" {
		return UnknownDescription
	}
	if v, ok := matchRule(descriptionRules, store); ok {
		return v
	}

	switch {
	case amount < 50:
		return "Small Purchase"
	case amount < 200:
		return "Medium Purchase"
	case amount < 500:
		return "Large Purchase"
	default:
		return "Purchase at " + strings.TrimSpace(store)
	}
}

// DefaultCategory guesses a category for a never-seen store.
func DefaultCategory(store string) string {
	if v, ok := matchRule(categoryRules, store); ok {
		return v
	}
	return domain.DefaultCategory
}

func matchRule(rules []keywordRule, store string) (string, bool) {
	lower := strings.ToLower(store)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.value, true
			}
		}
	}
	return "", false
}
