package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/adfharrison1/json-updates/pkg/domain"
)

const (
	responseTypeSuccess = "success"
	responseTypeError   = "error"
)

// Client-facing error messages
const (
	MessageUnauthorized = "Provide access token"
	MessageForbidden    = "Can not write to this db collection"
	MessageWriteFailed  = "Failed to write update to db"
	MessageInvalidBody  = "Invalid request body"
	MessageBodyTooLarge = "Request body too large"
)

// SuccessResponse carries the records persisted by a write
type SuccessResponse struct {
	Type string          `json:"type"`
	Data []domain.Record `json:"data"`
}

// ErrorResponse represents a standard JSON error response
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// WriteJSONError writes a JSON error response with the given status code and message
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{
		Type:    responseTypeError,
		Message: message,
	})
}

// WriteSuccess writes a 200 response listing records
func WriteSuccess(w http.ResponseWriter, records []domain.Record) {
	if records == nil {
		records = []domain.Record{}
	}
	writeJSON(w, http.StatusOK, SuccessResponse{
		Type: responseTypeSuccess,
		Data: records,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("ERROR: Failed to encode response: %v", err)
	}
}
