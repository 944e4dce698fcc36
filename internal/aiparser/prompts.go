package aiparser

import (
	"fmt"
	"strings"
)

func buildStatementPrompt(text string) string {
	return "You are a financial statement parser for South African bank statements.\n\n" +
		"Task:\n" +
		"- Parse ALL transactions in the statement text below.\n" +
		"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
		"- Output a JSON array of objects.\n\n" +
		"Each object must have these fields:\n" +
		"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
		"- \"description\": string\n" +
		"- \"store\": string or null (clean merchant name)\n" +
		"- \"amount\": number (positive for money IN, negative for money OUT)\n" +
		"- \"balance_after\": number or null\n" +
		"- \"category\": string, one of: " + strings.Join(KnownCategories, ", ") + "\n\n" +
		"Rules:\n" +
		"- If the statement has separate debit / credit columns, convert to a single signed \"amount\".\n" +
		"- If the running balance is missing, set \"balance_after\" to null.\n" +
		"- Skip opening and closing balance lines.\n\n" +
		"Return ONLY valid raw JSON.\n" +
		"Do NOT wrap the response in code fences.\n" +
		"Output must begin with \"[\" and end with \"]\".\n\n" +
		"Statement:\n" + text
}

func buildMessagePrompt(text string) string {
	return fmt.Sprintf(`Parse this transaction notification and extract expense information. Return ONLY a JSON object with this exact structure:

{
  "isExpense": boolean,
  "amount": number (or null if not an expense),
  "store": string (or null if not an expense),
  "description": string (or null if not an expense),
  "category": string (one of: %s, or null if not an expense),
  "confidence": number (0-1, how confident you are this is an expense)
}

Rules:
- Only return true for "isExpense" if this is clearly a spending transaction
- Amount should be in South African Rand (R)
- Store name should be clean and readable
- Description should be concise (1-3 words)
- Confidence should reflect how certain you are

Message to parse: %q

Return only the JSON object, no other text.`, strings.Join(KnownCategories, ", "), text)
}
