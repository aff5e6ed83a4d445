package model

// Status tags the result of a single submission.
type Status string

const (
	// StatusSkipped means the code was empty; nothing was sent.
	StatusSkipped Status = "skipped"
	// StatusSuccess means the model answered and the result was stored.
	StatusSuccess Status = "success"
	// StatusFailed means the call failed and an error message was stored.
	StatusFailed Status = "failed"
)

// NoResponse is shown when the model's reply carries no text.
const NoResponse = "No response."

// GenericFailure is shown when a failure carries no message from the API.
const GenericFailure = "Failed to fetch explanation. Please check your API key and network."

// Outcome is the tagged result of one submission.
// Exactly one of Result or Error is set for success/failed; neither for skipped.
type Outcome struct {
	Status Status        `json:"status"`
	Result string        `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
	Entry  *HistoryEntry `json:"entry,omitempty"`
}

// Snapshot is a point-in-time copy of a controller's observable state.
type Snapshot struct {
	Busy    bool           `json:"busy"`
	Result  string         `json:"result"`
	Error   string         `json:"error"`
	History []HistoryEntry `json:"history"`
}
