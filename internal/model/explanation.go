package model

// Explanation is the raw response from the ledger's explanation endpoint.
// The three candidate text fields are tried in priority order; any or all
// may be empty.
type Explanation struct {
	LLMRationale string `json:"llm_rationale"`
	Rationale    string `json:"rationale"`
	Reply        string `json:"reply"`
}

// Text returns the explanation text, preferring the model rationale, then
// the generic rationale, then the generic reply. Returns "" when no field
// is populated.
func (e *Explanation) Text() string {
	switch {
	case e.LLMRationale != "":
		return e.LLMRationale
	case e.Rationale != "":
		return e.Rationale
	default:
		return e.Reply
	}
}

// Suggestion is a category suggestion for an uncategorized transaction.
type Suggestion struct {
	Category   string  `json:"category"`
	Rationale  string  `json:"rationale"`
	Confidence float64 `json:"confidence"`
}
