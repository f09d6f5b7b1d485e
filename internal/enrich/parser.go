package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
)

const analysisPrompt = `Analyze this bank notification message and extract the transaction details.

Message:
%s

Respond with a JSON object with these fields (omit any you cannot determine):
- amount: transaction amount as a number
- category: spending category (e.g. "Food & Dining", "Shopping", "Transport", "Bills & Utilities", "Salary")
- subcategory: more specific category if clear
- merchant: merchant or counterparty name
- method: payment method (UPI, card, NEFT, IMPS, ATM, cash)
- location: location if mentioned
- reference: transaction reference number if present
- confidence: your confidence in this analysis, 0.0 to 1.0
- anomaly_flags: list of short labels for anything unusual
- insight: one short free-text observation about this transaction`

// cleanMarkdownWrapper strips the code fences some models wrap JSON in.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// parseAnalysis extracts the structured analysis from the model's text
// output.
func parseAnalysis(content string) (AnalysisResponse, error) {
	content = cleanMarkdownWrapper(content)

	var resp AnalysisResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return AnalysisResponse{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return resp, nil
}
