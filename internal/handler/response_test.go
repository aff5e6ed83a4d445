package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/devhelper-ai/internal/apperror"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   ErrorResponse
	}{
		{
			name:       "validation",
			err:        apperror.ValidationFailed("language", "unsupported language: COBOL"),
			wantStatus: http.StatusBadRequest,
			wantBody:   ErrorResponse{Error: "validation_error", Message: "unsupported language: COBOL"},
		},
		{
			name:       "not found, wrapped",
			err:        fmt.Errorf("loading entry: %w", apperror.NotFound("history entry", "abc")),
			wantStatus: http.StatusNotFound,
			wantBody:   ErrorResponse{Error: "not_found", Message: "history entry not found with id abc"},
		},
		{
			name:       "busy",
			err:        apperror.Busy("an analysis is already in progress"),
			wantStatus: http.StatusConflict,
			wantBody:   ErrorResponse{Error: "busy", Message: "an analysis is already in progress"},
		},
		{
			name:       "AppError with an unmapped sentinel",
			err:        &apperror.AppError{Err: errors.New("other"), Message: "odd"},
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Error: "internal_error", Message: "odd"},
		},
		{
			name:       "plain error hides details",
			err:        errors.New("sql: database is closed"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   ErrorResponse{Error: "internal_error", Message: "An internal error occurred"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			var got ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}
