package httputils

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/linklytics/linklytics/internal/constants"
)

const CorrelationIDHeader = "X-Correlation-Id"

// createdResponse is the envelope for resource creation: {ok, data}.
type createdResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

// successResponse is the envelope analytics reads use: {success, data}.
type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// errorResponse carries the human-readable message in "error" and the
// machine code in "code". "details" is only populated outside production.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// GetCorrelationID extracts the correlation ID from the request header.
// If not present, generates a new UUID v4.
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	return correlationID
}

// WriteCreated writes the {ok:true, data} creation envelope.
func WriteCreated(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, r, http.StatusCreated, createdResponse{OK: true, Data: data})
}

// WriteData writes the {success:true, data} read envelope.
func WriteData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, successResponse{Success: true, Data: data})
}

// WriteAPIError writes an error response using a predefined APIError.
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	WriteAPIErrorDetails(w, r, apiErr, "")
}

// WriteAPIErrorDetails additionally attaches diagnostic detail; callers only
// pass it in non-production configurations.
func WriteAPIErrorDetails(w http.ResponseWriter, r *http.Request, apiErr constants.APIError, details string) {
	writeJSON(w, r, apiErr.Status, errorResponse{
		Success: false,
		Error:   apiErr.Message,
		Code:    apiErr.Code,
		Details: details,
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set(CorrelationIDHeader, GetCorrelationID(r))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}
