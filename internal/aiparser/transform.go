package aiparser

import (
	"fmt"
	"strings"
)

// statementRowsFromJSON accepts either a bare array or {"transactions": [...]}.
func statementRowsFromJSON(parsed interface{}) ([]StatementRow, error) {
	if obj, ok := parsed.(map[string]interface{}); ok {
		parsed = obj["transactions"]
	}
	items, ok := parsed.([]interface{})
	if !ok {
		return nil, fmt.Errorf("transactions is %T, want array", parsed)
	}

	rows := make([]StatementRow, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("element %d is %T, want object", i, item)
		}

		date, err := getStringField(obj, "date", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		desc, err := getStringField(obj, "description", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		amount, err := getFloat64Field(obj, "amount", true)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		store, err := getOptionalStringField(obj, "store")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		category, err := getOptionalStringField(obj, "category")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		balance, err := getOptionalFloat64Field(obj, "balance_after")
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}

		row := StatementRow{Date: date, Description: desc, Amount: amount, Balance: balance}
		if store != nil {
			row.Store = *store
		}
		if category != nil {
			row.Category = *category
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func messageGuessFromJSON(obj map[string]interface{}) (*MessageGuess, error) {
	isExpense, ok := obj["isExpense"].(bool)
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want bool", "isExpense", obj["isExpense"])
	}
	confidence, err := getFloat64Field(obj, "confidence", true)
	if err != nil {
		return nil, err
	}

	g := &MessageGuess{IsExpense: isExpense, Confidence: confidence}
	if amount, err := getOptionalFloat64Field(obj, "amount"); err != nil {
		return nil, err
	} else if amount != nil {
		g.Amount = *amount
	}
	for key, dst := range map[string]*string{"store": &g.Store, "description": &g.Description, "category": &g.Category} {
		v, err := getOptionalStringField(obj, key)
		if err != nil {
			return nil, err
		}
		if v != nil {
			*dst = *v
		}
	}
	return g, nil
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	val, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	if required && strings.TrimSpace(val) == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return val, nil
}

func getOptionalStringField(m map[string]interface{}, key string) (*string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	val, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want string or null", key, v)
	}
	s := strings.TrimSpace(val)
	if s == "" {
		return nil, nil
	}
	return &s, nil
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
	return f, nil
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("field %q has type %T, want number or null", key, v)
	}
	return &f, nil
}
