package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var currencyNoise = strings.NewReplacer(
	"ZAR", "",
	"R", "",
	"£", "",
	"$", "",
	"€", "",
	",", "",
)

var plainNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)$`)

// ParseAmount strips the currency symbol, thousands separators and
// whitespace from token and parses the rest. The sign is kept; a trailing
// minus or surrounding parentheses also mark a negative value.
func ParseAmount(token string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, token)
	s = currencyNoise.Replace(s)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	} else if len(s) > 1 && strings.HasSuffix(s, "-") {
		negative = true
		s = s[:len(s)-1]
	}

	if !plainNumber.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	if negative {
		v = -math.Abs(v)
	}
	return v, true
}

// Magnitude splits a signed amount into its absolute value and whether it
// was negative.
func Magnitude(v float64) (float64, bool) {
	return math.Abs(v), v < 0
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CollapseSpaces trims s and folds internal whitespace runs into one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
