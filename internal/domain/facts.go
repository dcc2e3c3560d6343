package domain

import "strings"

// SearchSource is one web citation attached by a search-augmented extraction.
type SearchSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// ExtractedFacts is the structured claim data produced by the evidence
// extraction stage.
type ExtractedFacts struct {
	MerchantName     string         `json:"merchantName"`
	MerchantEmail    string         `json:"merchantEmail,omitempty"`
	TransactionDate  string         `json:"transactionDate"`
	Amount           string         `json:"amount"`
	Currency         string         `json:"currency"`
	BookingReference string         `json:"bookingReference,omitempty"`
	IssueDescription string         `json:"issueDescription"`
	SearchSources    []SearchSource `json:"searchSources,omitempty"`
}

// MissingRequired lists the required fields that are empty. Letter generation
// needs all of merchant, amount, currency, date and issue filled in.
func (f *ExtractedFacts) MissingRequired() []string {
	var missing []string
	check := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	check("merchantName", f.MerchantName)
	check("amount", f.Amount)
	check("currency", f.Currency)
	check("transactionDate", f.TransactionDate)
	check("issueDescription", f.IssueDescription)
	return missing
}

// PolicyAnalysis is the analyst stage's refundability judgment.
type PolicyAnalysis struct {
	IsLikelyRefundable     bool   `json:"isLikelyRefundable"`
	RefundProbabilityScore int    `json:"refundProbabilityScore"`
	KeyPolicyClause        string `json:"keyPolicyClause"`
	StrategySuggestion     string `json:"strategySuggestion"`
}
