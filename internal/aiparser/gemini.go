package aiparser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiParser implements Parser with the Gemini API. Credentials come from
// the environment (GOOGLE_API_KEY, or Vertex AI settings).
type GeminiParser struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGeminiParser creates a client for model.
func NewGeminiParser(ctx context.Context, model string) (*GeminiParser, error) {
	if model == "" {
		model = DefaultModelName
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiParser{
		generate: func(ctx context.Context, prompt string) (string, error) {
			contents := []*genai.Content{
				{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
			}
			resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
			if err != nil {
				return "", fmt.Errorf("generate content: %w", err)
			}
			return resp.Text(), nil
		},
	}, nil
}

// ParseStatement asks the model for every transaction in text.
func (p *GeminiParser) ParseStatement(ctx context.Context, text string) ([]StatementRow, error) {
	raw, err := p.ask(ctx, buildStatementPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w", err)
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("ParseStatement: unmarshal JSON: %w", err)
	}
	rows, err := statementRowsFromJSON(parsed)
	if err != nil {
		return nil, fmt.Errorf("ParseStatement: %w", err)
	}
	return rows, nil
}

// ParseMessage asks the model to read one notification or SMS.
func (p *GeminiParser) ParseMessage(ctx context.Context, text string) (*MessageGuess, error) {
	raw, err := p.ask(ctx, buildMessagePrompt(text))
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: %w", err)
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("ParseMessage: unmarshal JSON: %w", err)
	}
	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("ParseMessage: response is %T, want object", parsed)
	}
	guess, err := messageGuessFromJSON(obj)
	if err != nil {
		return nil, fmt.Errorf("ParseMessage: %w", err)
	}
	if err := ValidateMessageGuess(guess); err != nil {
		return nil, fmt.Errorf("ParseMessage: invalid guess: %w", err)
	}
	return guess, nil
}

func (p *GeminiParser) ask(ctx context.Context, prompt string) (string, error) {
	raw, err := p.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

// cleanModelJSON strips Markdown fences and any text around the outermost
// JSON array or object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "[{")
	if open == -1 {
		return s
	}
	closer := "]"
	if s[open] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}

var _ Parser = (*GeminiParser)(nil)
