package handler

import "net/http"

// SessionCounter reports how many sessions are live. *session.Manager implements it.
type SessionCounter interface {
	Len() int
}

type healthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Health answers liveness probes.
//
// HTTP: GET /healthz
func Health(sessions SessionCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Sessions: sessions.Len()})
	}
}
