package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// RetrieveRequest is the body of POST /retrieve.
type RetrieveRequest struct {
	Query *string `json:"query"`
	K     *int    `json:"k"`
}

// AnswerRequest is the body of POST /answer.
type AnswerRequest struct {
	Query *string `json:"query"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

type errorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		OK:      true,
		Version: s.opts.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Query == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "query is required")
		return
	}
	k := domain.DefaultRetrieveK
	if req.K != nil {
		k = *req.K
	}

	tenant, _ := TenantFromContext(r.Context())
	ctx, cancel := s.requestContext(r)
	defer cancel()

	resp, err := s.ports.Retrieval.Retrieve(ctx, tenant, *req.Query, k)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req AnswerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.Query == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "query is required")
		return
	}

	tenant, _ := TenantFromContext(r.Context())
	ctx, cancel := s.requestContext(r)
	defer cancel()

	resp, err := s.ports.Answer.Answer(ctx, tenant, *req.Query)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDebugTenant(w http.ResponseWriter, r *http.Request) {
	tenant, _ := TenantFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"tenant_id": tenant.String()})
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.opts.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), s.opts.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// decodeBody decodes a single JSON object and rejects unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrTenantRequired):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEmbeddingUnavailable), errors.Is(err, domain.ErrLLMUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	tenant, _ := TenantFromContext(r.Context())
	logger.ForTenant(tenant.String()).Error("%s %s failed: %v (request_id=%s)",
		r.Method, r.URL.Path, err, RequestID(r.Context()))

	detail := http.StatusText(status)
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	writeError(w, r, status, detail)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail, RequestID: RequestID(r.Context())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
