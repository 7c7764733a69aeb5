package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/IsaacBoateng/Private-blockchain/pkg/block"
	"github.com/IsaacBoateng/Private-blockchain/pkg/chain"
	"github.com/IsaacBoateng/Private-blockchain/pkg/ownership"
)

const maxBodyBytes = 1 << 20

// Ledger is the read side of the chain.
type Ledger interface {
	Height() int64
	GetByHash(hash string) []*block.Block
	GetByHeight(height uint64) (*block.Block, bool)
	GetByOwner(address string) ([]any, error)
	Audit() []*chain.Violation
}

// Registrar runs the ownership protocol.
type Registrar interface {
	IssueChallenge(address string) string
	VerifyAndSubmit(ctx context.Context, address, message, signature string, payload any) (*block.Block, error)
}

type ValidationRequest struct {
	Address string `json:"address"`
}

type ValidationResponse struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

type SubmitRequest struct {
	Address   string          `json:"address"`
	Message   string          `json:"message"`
	Signature string          `json:"signature"`
	Star      json.RawMessage `json:"star"`
}

type HeightResponse struct {
	Height int64 `json:"height"`
}

type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// HandleBlockByHeight handles GET /block/height/{height}.
func (s *Server) HandleBlockByHeight(w http.ResponseWriter, r *http.Request) {
	height, err := strconv.ParseUint(r.PathValue("height"), 10, 64)
	if err != nil {
		WriteBadRequest(w, "height must be a non-negative integer")
		return
	}
	b, ok := s.ledger.GetByHeight(height)
	if !ok {
		WriteNotFound(w, "Block Not Found!")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleBlockByHash handles GET /block/hash/{hash}.
func (s *Server) HandleBlockByHash(w http.ResponseWriter, r *http.Request) {
	blocks := s.ledger.GetByHash(r.PathValue("hash"))
	if len(blocks) == 0 {
		WriteNotFound(w, "Block Not Found!")
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

// HandleRequestValidation handles POST /requestValidation.
func (s *Server) HandleRequestValidation(w http.ResponseWriter, r *http.Request) {
	var req ValidationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address == "" {
		WriteBadRequest(w, "Missing required field: address")
		return
	}
	writeJSON(w, http.StatusOK, ValidationResponse{
		Address:   req.Address,
		Message:   s.registrar.IssueChallenge(req.Address),
		ExpiresIn: int(ownership.Window / time.Second),
	})
}

// HandleSubmitStar handles POST /submitstar.
func (s *Server) HandleSubmitStar(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Address == "" || req.Message == "" || req.Signature == "" {
		WriteBadRequest(w, "Missing required fields: address, message, signature")
		return
	}
	star, err := s.stars.Decode(req.Star)
	if err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	b, err := s.registrar.VerifyAndSubmit(r.Context(), req.Address, req.Message, req.Signature, star)
	if err != nil {
		WriteSubmissionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// HandleBlocksByOwner handles GET /blocks/{address}.
func (s *Server) HandleBlocksByOwner(w http.ResponseWriter, r *http.Request) {
	owned, err := s.ledger.GetByOwner(r.PathValue("address"))
	if err != nil {
		WriteInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, owned)
}

// HandleHeight handles GET /chain/height.
func (s *Server) HandleHeight(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HeightResponse{Height: s.ledger.Height()})
}

// HandleValidate handles GET /chain/validate.
func (s *Server) HandleValidate(w http.ResponseWriter, r *http.Request) {
	violations := s.ledger.Audit()
	if len(violations) > 0 {
		s.logger.WarnContext(r.Context(), "chain audit found violations", "count", len(violations))
	}
	writeJSON(w, http.StatusOK, ValidateResponse{
		Valid:  len(violations) == 0,
		Errors: chain.Descriptors(violations),
	})
}

// HandleHealth handles GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"height": s.ledger.Height(),
	})
}
