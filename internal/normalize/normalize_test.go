package normalize

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		want   civil.Date
		wantOK bool
	}{
		{"year first slash", "2024/03/02", civil.Date{Year: 2024, Month: 3, Day: 2}, true},
		{"year first dash single digits", "2024-3-2", civil.Date{Year: 2024, Month: 3, Day: 2}, true},
		{"year first embedded", "Posted 2021/11/30 ref", civil.Date{Year: 2021, Month: 11, Day: 30}, true},
		{"lower bound", "2000/01/01", civil.Date{Year: 2000, Month: 1, Day: 1}, true},
		{"last supported day", "2029/12/31", civil.Date{Year: 2029, Month: 12, Day: 31}, true},
		{"year below range", "1999/05/10", civil.Date{}, false},
		{"year at upper bound", "2030/01/01", civil.Date{}, false},
		{"year far above range", "2031/01/02", civil.Date{}, false},
		{"invalid calendar day", "2023/02/29", civil.Date{}, false},
		{"leap day", "2024/02/29", civil.Date{Year: 2024, Month: 2, Day: 29}, true},
		{"day first when month first impossible", "15/01/2024", civil.Date{Year: 2024, Month: 1, Day: 15}, true},
		{"month first preferred", "03/04/2024", civil.Date{Year: 2024, Month: 3, Day: 4}, true},
		{"two digit year", "01/15/24", civil.Date{Year: 2024, Month: 1, Day: 15}, true},
		{"two digit year day first", "31-12-23", civil.Date{Year: 2023, Month: 12, Day: 31}, true},
		{"no ordering valid", "13/13/2024", civil.Date{}, false},
		{"not a date", "Shell Garage", civil.Date{}, false},
		{"empty", "", civil.Date{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDateYearFirstRoundTrip(t *testing.T) {
	for year := 1995; year < 2035; year++ {
		for _, md := range [][2]int{{1, 1}, {2, 28}, {6, 15}, {12, 31}} {
			d := civil.Date{Year: year, Month: time.Month(md[0]), Day: md[1]}
			token := d.String()
			got, ok := ParseDate(token)
			inRange := year >= 2000 && year < 2030
			assert.Equal(t, inRange, ok, token)
			if inRange {
				assert.Equal(t, d, got, token)
			}
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		token  string
		want   float64
		wantOK bool
	}{
		{"R1,234.56", 1234.56, true},
		{"R 1 234.56", 1234.56, true},
		{"-R45.00", -45.00, true},
		{"R45.00", 45.00, true},
		{"+R120", 120, true},
		{"ZAR 2,500.00", 2500, true},
		{"$9.99", 9.99, true},
		{"£1,000", 1000, true},
		{"450.00-", -450, true},
		{"(75.50)", -75.5, true},
		{"0.00", 0, true},
		{"abc", 0, false},
		{"R", 0, false},
		{"", 0, false},
		{"12.3.4", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"0x1p4", 0, false},
		{"1e3", 0, false},
		{"R1_000", 0, false},
		{".50", 0.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseAmount(tt.token)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMagnitude(t *testing.T) {
	v, neg := Magnitude(-45)
	assert.Equal(t, 45.0, v)
	assert.True(t, neg)

	v, neg = Magnitude(12.5)
	assert.Equal(t, 12.5, v)
	assert.False(t, neg)
}

func TestCollapseSpaces(t *testing.T) {
	assert.Equal(t, "Shell Garage Sandton", CollapseSpaces("  Shell   Garage\tSandton "))
	assert.Equal(t, "", CollapseSpaces("   "))
}
