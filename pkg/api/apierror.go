// Package api serves the notary over HTTP. Errors are RFC 7807 problem
// documents.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
	"github.com/IsaacBoateng/Private-blockchain/pkg/ownership"
)

// ProblemDetail is the RFC 7807 body of every error response.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// TraceID echoes the X-Request-ID of the response.
	TraceID string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return p.Title + ": " + p.Detail
}

// WriteError writes a problem document for status. The title is the
// status text.
func WriteError(w http.ResponseWriter, status int, detail string) {
	p := &ProblemDetail{
		Type:    "urn:notary:errors:" + strconv.Itoa(status),
		Title:   http.StatusText(status),
		Status:  status,
		Detail:  detail,
		TraceID: w.Header().Get(RequestIDHeader),
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, detail)
}

func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, detail)
}

// WriteTooManyRequests sets Retry-After before writing the 429.
func WriteTooManyRequests(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	WriteError(w, http.StatusTooManyRequests, "Rate limit exceeded, retry later")
}

// WriteInternal logs err and writes a generic 500. err never reaches the
// client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err, "request_id", w.Header().Get(RequestIDHeader))
	WriteError(w, http.StatusInternalServerError, "An unexpected error occurred")
}

// WriteSubmissionError maps ownership failures to their statuses. Anything
// else, chain failures included, is a sanitized 500.
func WriteSubmissionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ownership.ErrMalformedMessage), errors.Is(err, block.ErrUnencodable):
		WriteBadRequest(w, err.Error())
	case errors.Is(err, ownership.ErrInvalidSignature):
		WriteError(w, http.StatusUnauthorized, "Signature does not prove ownership of the address")
	case errors.Is(err, ownership.ErrExpired):
		WriteError(w, http.StatusGone, err.Error())
	case errors.Is(err, ownership.ErrChallengeReused):
		WriteError(w, http.StatusConflict, "Challenge has already been redeemed")
	default:
		WriteInternal(w, err)
	}
}
