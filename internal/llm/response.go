package llm

// GenerateResponse is the decoded body of a successful generateContent call.
// Fields the app never reads (safety ratings, usage metadata) are omitted.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Text returns the first candidate's first part, and whether it was present.
//
// A reply without that path is not an error — the model can legitimately
// return nothing (e.g. a blocked prompt). Callers decide what to show.
func (r *GenerateResponse) Text() (string, bool) {
	if r == nil || len(r.Candidates) == 0 {
		return "", false
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", false
	}
	return parts[0].Text, true
}

// errorBody is the structured error the API sends with non-2xx responses:
//
//	{"error": {"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"}}
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
