package extraction

import (
	"regexp"
	"strings"

	"github.com/dvloznov/statement-extractor/internal/domain"
	"github.com/dvloznov/statement-extractor/internal/normalize"
)

const numberPattern = `[+-]?(?:\bR)?\s?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?`

// Patterns per header field, tried in order. The first match for a field is
// kept for the whole text.
var (
	accountNumberPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)account\s*(?:number|no\.?)\s*:?\s*([\d][\d\s-]{4,}\d)`),
		regexp.MustCompile(`(?i)account:\s*([^,\[\]]+)`),
	}
	accountNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)account\s+name:\s*([^,]+)`),
		regexp.MustCompile(`(?i)name:\s*([^,]+)`),
	}

	accountTypePattern      = regexp.MustCompile(`\[([^\]]+)\]`)
	availableBalancePattern = regexp.MustCompile(`(?i)available\s+balance:\s*,?\s*(` + numberPattern + `)`)
	balancePattern          = regexp.MustCompile(`(?i)balance:\s*,?\s*(` + numberPattern + `)`)

	// secondNumber reads an available balance that follows the balance.
	secondNumber = regexp.MustCompile(`^\s*,\s*(` + numberPattern + `)`)
)

// knownBanks is checked with case-sensitive substring matches; the first
// hit names the bank.
var knownBanks = []struct {
	needles []string
	name    string
}{
	{[]string{"FNB", "First National Bank"}, "FNB"},
	{[]string{"ABSA"}, "ABSA"},
	{[]string{"Standard Bank"}, "Standard Bank"},
	{[]string{"Nedbank"}, "Nedbank"},
	{[]string{"Capitec"}, "Capitec"},
	{[]string{"Investec"}, "Investec"},
	{[]string{"TymeBank"}, "TymeBank"},
	{[]string{"Discovery Bank"}, "Discovery Bank"},
	{[]string{"Bank Zero"}, "Bank Zero"},
	{[]string{"African Bank"}, "African Bank"},
}

// ExtractAccountInfo scans every line once for statement header fields. Each
// field is discovered independently and never overwritten once found.
func ExtractAccountInfo(lines []string) domain.AccountInfo {
	var info domain.AccountInfo

	for _, line := range lines {
		lower := strings.ToLower(line)

		if strings.Contains(lower, "account") {
			if info.AccountNumber == "" {
				info.AccountNumber = firstSubmatch(accountNumberPatterns, line)
			}
			if info.AccountType == "" && strings.Contains(lower, "account:") {
				if m := accountTypePattern.FindStringSubmatch(line); m != nil {
					info.AccountType = strings.TrimSpace(m[1])
				}
			}
		}

		if info.AccountName == "" && strings.Contains(lower, "name:") {
			info.AccountName = firstSubmatch(accountNamePatterns, line)
		}

		if strings.Contains(lower, "balance:") {
			extractBalances(&info, line, lower)
		}

		if info.BankName == "" {
			info.BankName = detectBank(line)
		}
	}
	return info
}

func extractBalances(info *domain.AccountInfo, line, lower string) {
	if strings.Contains(lower, "available balance:") {
		if info.AvailableBalance == nil {
			if m := availableBalancePattern.FindStringSubmatch(line); m != nil {
				info.AvailableBalance = parseNumber(m[1])
			}
		}
		return
	}
	if info.Balance != nil {
		return
	}
	loc := balancePattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return
	}
	info.Balance = parseNumber(line[loc[2]:loc[3]])
	if info.AvailableBalance != nil {
		return
	}
	if m := secondNumber.FindStringSubmatch(line[loc[1]:]); m != nil {
		info.AvailableBalance = parseNumber(m[1])
	}
}

func firstSubmatch(patterns []*regexp.Regexp, line string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(line); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func parseNumber(token string) *float64 {
	v, ok := normalize.ParseAmount(token)
	if !ok {
		return nil
	}
	return &v
}

func detectBank(line string) string {
	for _, b := range knownBanks {
		for _, n := range b.needles {
			if strings.Contains(line, n) {
				return b.name
			}
		}
	}
	return ""
}
