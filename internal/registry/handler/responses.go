package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"namereg/internal/registry/models"
)

// RecordResponse is the wire form of a resolved record.
type RecordResponse struct {
	Name         string    `json:"name"`
	Owner        string    `json:"owner"`
	Target       string    `json:"target"`
	ContentHash  string    `json:"content_hash"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toRecordResponse(record *models.Record) RecordResponse {
	return RecordResponse{
		Name:         record.Name,
		Owner:        record.Owner.String(),
		Target:       record.Target.String(),
		ContentHash:  record.ContentHash,
		RegisteredAt: record.RegisteredAt,
	}
}

// AvailabilityResponse answers an availability probe.
type AvailabilityResponse struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// OwnedNamesResponse lists the names an identity currently holds.
type OwnedNamesResponse struct {
	Owner string   `json:"owner"`
	Names []string `json:"names"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError translates the registry's typed failures into HTTP statuses with
// a stable machine-readable error code.
func writeError(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal"

	var (
		nameEmpty   *models.NameEmptyError
		nameTooLong *models.NameTooLongError
		nameTaken   *models.NameAlreadyRegisteredError
		notFound    *models.NameNotFoundError
		notOwner    *models.NotOwnerError
		badTarget   *models.InvalidTargetError
		badHash     *models.InvalidContentHashError
		alreadyOwns *models.AlreadyOwnerError
	)
	switch {
	case errors.As(err, &nameEmpty):
		status, code = http.StatusBadRequest, "name_empty"
	case errors.As(err, &nameTooLong):
		status, code = http.StatusBadRequest, "name_too_long"
	case errors.As(err, &badTarget):
		status, code = http.StatusBadRequest, "invalid_target"
	case errors.As(err, &badHash):
		status, code = http.StatusBadRequest, "invalid_content_hash"
	case errors.As(err, &notFound):
		status, code = http.StatusNotFound, "name_not_found"
	case errors.As(err, &notOwner):
		status, code = http.StatusForbidden, "not_owner"
	case errors.As(err, &nameTaken):
		status, code = http.StatusConflict, "name_taken"
	case errors.As(err, &alreadyOwns):
		status, code = http.StatusConflict, "already_owner"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
