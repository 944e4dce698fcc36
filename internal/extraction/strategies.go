package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dvloznov/statement-extractor/internal/normalize"
)

// Strategy names.
const (
	StrategyCSV      = "csv"
	StrategyStandard = "standard"
	StrategyTable    = "table"
	StrategyGeneric  = "generic"
	StrategyAI       = "ai"
)

const (
	notesStatement = "Imported from bank statement"
	notesCSV       = "Imported from CSV bank statement"
	notesTable     = "Imported from table format bank statement"
	notesAI        = "Imported from bank statement (AI)"
	incomeSuffix   = " (Income)"
)

// minDescriptionLen rejects leftovers such as "Dr" or "-" as descriptions.
const minDescriptionLen = 4

var (
	// Date patterns capture the date in group 1 and only require that no
	// digit follows, so "2024/03/02R450.00" still splits.
	standardDate = regexp.MustCompile(`\b(\d{4}[/-]\d{1,2}[/-]\d{1,2}|\d{1,2}[/-]\d{1,2}[/-](?:\d{4}|\d{2}))(?:\D|$)`)
	// genericDate also accepts dots and single spaces as separators.
	genericDate    = regexp.MustCompile(`\b(\d{1,2}[./\- ]\d{1,2}[./\- ](?:\d{4}|\d{2}))(?:\D|$)`)
	dateSeparators = strings.NewReplacer(".", "/", " ", "/")

	decimalAmount = regexp.MustCompile(`[+-]?(?:\bR)?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\b`)
	// looseAmount is a standalone number, so "7-Eleven" is not read as R7.
	looseAmount = regexp.MustCompile(`(?:^|\s)[+-]?R?\s?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?(?:\s|$)`)

	tableRowDate   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	tableRowAmount = regexp.MustCompile(`\d`)
	columnGap      = regexp.MustCompile(`\s{2,}`)
)

// HasCSVHeader reports whether any line names the date, amount and
// description columns.
func HasCSVHeader(lines []string) bool {
	return csvHeaderIndex(lines) >= 0
}

func csvHeaderIndex(lines []string) int {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "date") && strings.Contains(lower, "amount") && strings.Contains(lower, "description") {
			return i
		}
	}
	return -1
}

// DefaultStrategies returns the strategy order for lines: the CSV reader
// first when a header row is present, the standard scan first otherwise,
// then the table and generic readers.
func DefaultStrategies(lines []string) []Strategy {
	if HasCSVHeader(lines) {
		return []Strategy{CSVStrategy{}, StandardStrategy{}, TableStrategy{}, GenericStrategy{}}
	}
	return []Strategy{StandardStrategy{}, CSVStrategy{}, TableStrategy{}, GenericStrategy{}}
}

// StandardStrategy finds a date and an amount anywhere on each line. A four
// digit year first date is preferred, and an amount with cents is preferred
// over a bare number.
type StandardStrategy struct{}

func (StandardStrategy) Name() string { return StrategyStandard }

func (StandardStrategy) Parse(lines []string) ([]Record, error) {
	return scanLines(lines, standardDate, []*regexp.Regexp{decimalAmount, looseAmount}), nil
}

// GenericStrategy is the last resort. It reads day and month first dates
// with any of "/", "-", "." or a space as separator, with no year first
// form.
type GenericStrategy struct{}

func (GenericStrategy) Name() string { return StrategyGeneric }

func (GenericStrategy) Parse(lines []string) ([]Record, error) {
	return scanLines(lines, genericDate, []*regexp.Regexp{decimalAmount, looseAmount}), nil
}

func scanLines(lines []string, datePattern *regexp.Regexp, amountPatterns []*regexp.Regexp) []Record {
	var out []Record
	for _, line := range lines {
		if r, ok := scanLine(line, datePattern, amountPatterns); ok {
			out = append(out, r)
		}
	}
	return out
}

func scanLine(line string, datePattern *regexp.Regexp, amountPatterns []*regexp.Regexp) (Record, bool) {
	loc := datePattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return Record{}, false
	}
	dateToken := line[loc[2]:loc[3]]
	date, ok := normalize.ParseDate(dateSeparators.Replace(dateToken))
	if !ok {
		return Record{}, false
	}

	// The amount is looked for with the date removed so that date digits
	// are never read as money.
	rest := strings.Replace(line, dateToken, " ", 1)
	var amountToken string
	for _, re := range amountPatterns {
		if amountToken = re.FindString(rest); amountToken != "" {
			break
		}
	}
	if amountToken == "" {
		return Record{}, false
	}
	amount, ok := normalize.ParseAmount(amountToken)
	if !ok || amount == 0 {
		return Record{}, false
	}

	description := normalize.CollapseSpaces(strings.Replace(rest, amountToken, " ", 1))
	if utf8.RuneCountInString(description) < minDescriptionLen {
		return Record{}, false
	}

	magnitude, _ := normalize.Magnitude(amount)
	return Record{
		Date:        date,
		Amount:      magnitude,
		IsIncome:    strings.Contains(amountToken, "+"),
		Description: description,
		Notes:       notesStatement,
		Line:        line,
	}, true
}

// CSVStrategy reads "date, amount, balance, description" rows below a
// header line. Only the first three commas split fields, so descriptions
// may contain commas. A positive amount is income.
type CSVStrategy struct{}

func (CSVStrategy) Name() string { return StrategyCSV }

func (CSVStrategy) Parse(lines []string) ([]Record, error) {
	header := csvHeaderIndex(lines)
	if header < 0 {
		return nil, nil
	}

	var out []Record
	for _, line := range lines[header+1:] {
		fields := strings.SplitN(line, ",", 4)
		if len(fields) < 4 {
			continue
		}
		date, ok := normalize.ParseDate(strings.TrimSpace(fields[0]))
		if !ok {
			continue
		}
		amount, ok := normalize.ParseAmount(fields[1])
		if !ok || amount == 0 {
			continue
		}
		description := strings.TrimSpace(fields[3])
		if description == "" {
			continue
		}

		magnitude, negative := normalize.Magnitude(amount)
		r := Record{
			Date:        date,
			Amount:      magnitude,
			IsIncome:    !negative,
			Description: description,
			Notes:       notesCSV,
			Line:        line,
		}
		if r.IsIncome {
			r.Notes += incomeSuffix
		}
		if b, ok := normalize.ParseAmount(fields[2]); ok {
			r.Balance = &b
		}
		out = append(out, r)
	}
	return out, nil
}

// TableStrategy reads whitespace aligned columns: date first, amount last,
// everything between is the description.
type TableStrategy struct{}

func (TableStrategy) Name() string { return StrategyTable }

func (TableStrategy) Parse(lines []string) ([]Record, error) {
	var out []Record
	for _, line := range lines {
		if !looksLikeTransactionRow(line) {
			continue
		}
		parts := columnGap.Split(strings.TrimSpace(line), -1)
		if len(parts) < 3 {
			continue
		}
		date, ok := normalize.ParseDate(parts[0])
		if !ok {
			continue
		}
		last := parts[len(parts)-1]
		amount, ok := normalize.ParseAmount(last)
		if !ok || amount == 0 {
			continue
		}
		description := normalize.CollapseSpaces(strings.Join(parts[1:len(parts)-1], " "))
		if description == "" {
			continue
		}

		magnitude, _ := normalize.Magnitude(amount)
		out = append(out, Record{
			Date:        date,
			Amount:      magnitude,
			IsIncome:    strings.HasPrefix(strings.TrimSpace(last), "+"),
			Description: description,
			Notes:       notesTable,
			Line:        line,
		})
	}
	return out, nil
}

func looksLikeTransactionRow(line string) bool {
	return len(line) > 20 && tableRowDate.MatchString(line) && tableRowAmount.MatchString(line)
}
