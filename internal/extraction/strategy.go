package extraction

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// Record is one transaction row found by a strategy, before merchant
// resolution. Amount is already a positive magnitude.
type Record struct {
	Date        civil.Date
	Amount      float64
	IsIncome    bool
	Description string
	Balance     *float64
	Notes       string
	Line        string
}

// Strategy is one self-contained way of reading transaction rows out of
// statement lines.
type Strategy interface {
	Name() string
	Parse(lines []string) ([]Record, error)
}

// Outcome tags a strategy result.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeSuccess
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "empty"
	}
}

// MarshalText renders the outcome name in JSON.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses an outcome name written by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "success":
		*o = OutcomeSuccess
	case "failure":
		*o = OutcomeFailure
	case "empty":
		*o = OutcomeEmpty
	default:
		return fmt.Errorf("unknown outcome %q", text)
	}
	return nil
}

// Result is the tagged outcome of running one strategy.
type Result struct {
	Strategy string   `json:"strategy"`
	Outcome  Outcome  `json:"outcome"`
	Records  []Record `json:"-"`
	Count    int      `json:"count"`
	Reason   string   `json:"reason,omitempty"`
}

// Success, Empty and Failure build tagged results.
func Success(strategy string, records []Record) Result {
	return Result{Strategy: strategy, Outcome: OutcomeSuccess, Records: records, Count: len(records)}
}

func Empty(strategy string) Result {
	return Result{Strategy: strategy, Outcome: OutcomeEmpty}
}

func Failure(strategy, reason string) Result {
	return Result{Strategy: strategy, Outcome: OutcomeFailure, Reason: reason}
}

// RunStrategy runs s and converts its return value, or a panic, into a
// tagged result.
func RunStrategy(s Strategy, lines []string) (res Result) {
	name := s.Name()
	defer func() {
		if r := recover(); r != nil {
			res = Failure(name, fmt.Sprintf("panic: %v", r))
		}
	}()

	records, err := s.Parse(lines)
	switch {
	case err != nil:
		return Failure(name, err.Error())
	case len(records) == 0:
		return Empty(name)
	default:
		return Success(name, records)
	}
}

// RunChain tries strategies in order and stops at the first success. It
// returns the winning result, or an empty result when every strategy came
// up empty or failed, together with one result per attempted strategy.
func RunChain(strategies []Strategy, lines []string) (Result, []Result) {
	attempts := make([]Result, 0, len(strategies))
	for _, s := range strategies {
		res := RunStrategy(s, lines)
		attempts = append(attempts, res)
		if res.Outcome == OutcomeSuccess {
			return res, attempts
		}
	}
	return Result{Outcome: OutcomeEmpty}, attempts
}
