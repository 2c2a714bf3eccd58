package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/adfharrison1/json-updates/pkg/domain"
	"github.com/adfharrison1/json-updates/pkg/gateway"
)

// WriteDataRequest is the body of POST /data
type WriteDataRequest struct {
	Collection string          `json:"db_collection"`
	Token      string          `json:"token"`
	Data       []domain.Record `json:"data"`
	IDField    string          `json:"id_field"`
}

// HandleWriteData handles POST requests inserting a batch of records
func (h *Handler) HandleWriteData(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var body WriteDataRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Printf("WARN: Request body exceeds %d bytes", tooLarge.Limit)
			WriteJSONError(w, http.StatusRequestEntityTooLarge, MessageBodyTooLarge)
			return
		}
		log.Printf("ERROR: Decoding body failed: %v", err)
		WriteJSONError(w, http.StatusBadRequest, MessageInvalidBody)
		return
	}

	log.Printf("INFO: handleWriteData called for collection '%s' with %d records", body.Collection, len(body.Data))

	result, err := h.writer.Write(r.Context(), domain.WriteRequest{
		Collection: body.Collection,
		Token:      body.Token,
		IDField:    body.IDField,
		Records:    body.Data,
	})
	if err != nil {
		h.writeError(w, body.Collection, err)
		return
	}

	log.Printf("INFO: Write successful for collection '%s': %d inserted, %d conflicts, %d skipped",
		body.Collection, len(result.Inserted), result.Conflicts, result.Skipped)
	WriteSuccess(w, result.Records())
}

func (h *Handler) writeError(w http.ResponseWriter, collection string, err error) {
	var rejected *gateway.WriteRejectedError
	switch {
	case errors.Is(err, gateway.ErrUnauthorized):
		log.Printf("WARN: Rejected write to collection '%s': invalid access token", collection)
		WriteJSONError(w, http.StatusUnauthorized, MessageUnauthorized)
	case errors.Is(err, gateway.ErrForbidden):
		log.Printf("WARN: Rejected write to collection '%s': outside allowed prefix", collection)
		WriteJSONError(w, http.StatusBadRequest, MessageForbidden)
	case errors.As(err, &rejected):
		log.Printf("ERROR: Write failed for collection '%s': %v", collection, rejected.Cause)
		WriteJSONError(w, http.StatusInternalServerError, MessageWriteFailed)
	default:
		log.Printf("ERROR: Write failed for collection '%s': %v", collection, err)
		WriteJSONError(w, http.StatusInternalServerError, MessageWriteFailed)
	}
}
