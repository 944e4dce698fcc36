// Package normalize turns locale-ambiguous date tokens and currency
// formatted amount tokens into canonical values.
package normalize

import (
	"regexp"
	"strconv"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/statement-extractor/internal/domain"
)

var (
	yearFirstDate = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)

	// Tried after yearFirstDate, in order. The first one that matches decides
	// the outcome for the token.
	ambiguousDates = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`),
		regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2})`),
	}
)

// ParseDate finds a date inside token and returns it as a calendar date.
//
// A four digit year first form (YYYY/M/D, YYYY-M-D) wins when present.
// Otherwise the two remaining parts are read month first, then day first,
// and the first ordering that forms a real date is used. Two digit years
// become 20YY. Dates outside [2000, 2030) are rejected.
func ParseDate(token string) (civil.Date, bool) {
	if m := yearFirstDate.FindStringSubmatch(token); m != nil {
		return validDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	for _, re := range ambiguousDates {
		m := re.FindStringSubmatch(token)
		if m == nil {
			continue
		}
		p1, p2, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		if d, ok := validDate(year, p1, p2); ok {
			return d, true
		}
		return validDate(year, p2, p1)
	}

	return civil.Date{}, false
}

func validDate(year, month, day int) (civil.Date, bool) {
	d := civil.Date{Year: year, Month: time.Month(month), Day: day}
	if !d.IsValid() || !domain.InSupportedRange(d) {
		return civil.Date{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
