// Package messages turns bank SMS and push notifications into transactions
// and feeds every recognized merchant back into the learned store.
package messages

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/normalize"
)

const (
	amountGroup = `R?\s*(\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?)`
	storeGroup  = `(.+?)(?:\s+on\s+\d|\.?\s+(?:available|avail|ref|reference)\b|\.\s|\.?\s*$)`
)

type alertShape struct {
	name   string
	re     *regexp.Regexp
	income bool
}

// Alert shapes in match order. Each has the amount as group 1 and the
// counterparty as group 2.
var alertShapes = []alertShape{
	{"card", regexp.MustCompile(`(?i)card ending in \d+\s+(?:was\s+)?charged\s*` + amountGroup + `\s+at\s+` + storeGroup), false},
	{"alert", regexp.MustCompile(`(?i)transaction alert:\s*` + amountGroup + `\s+debit\s+at\s+` + storeGroup), false},
	{"payment", regexp.MustCompile(`(?i)payment of\s*` + amountGroup + `\s+to\s+(.+?)\s+completed`), false},
	{"debit", regexp.MustCompile(`(?i)debit:\s*` + amountGroup + `\s+(?:at\s+)?` + storeGroup), false},
	{"purchase", regexp.MustCompile(`(?i)purchase:\s*` + amountGroup + `\s+at\s+` + storeGroup), false},
	{"spent", regexp.MustCompile(`(?i)spent\s*` + amountGroup + `\s+at\s+` + storeGroup), false},
	{"spent-after", regexp.MustCompile(`(?i)` + amountGroup + `\s+spent\s+at\s+` + storeGroup), false},
	{"received", regexp.MustCompile(`(?i)(?:received|credited with|deposit of)\s*` + amountGroup + `\s+(?:from|by)\s+` + storeGroup), true},
	{"credited", regexp.MustCompile(`(?i)` + amountGroup + `\s+(?:was\s+|has been\s+)?(?:received|credited|deposited)(?:\s+(?:to|into) your account)?\s+from\s+` + storeGroup), true},
}

// Parsed is the result of reading one alert text.
type Parsed struct {
	Amount   float64
	Store    string
	IsIncome bool
	Shape    string
}

// Parse matches text against the known alert shapes. The first shape that
// yields a positive amount and a store wins.
func Parse(text string) (Parsed, bool) {
	for _, s := range alertShapes {
		m := s.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		amount, ok := normalize.ParseAmount(m[1])
		if !ok || amount <= 0 {
			continue
		}
		store := cleanStore(m[2])
		if store == "" {
			continue
		}
		return Parsed{Amount: amount, Store: store, IsIncome: s.income, Shape: s.name}, true
	}
	return Parsed{}, false
}

func cleanStore(s string) string {
	return strings.Trim(normalize.CollapseSpaces(s), ".,;:!-")
}
