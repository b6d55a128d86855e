// Package httpapi serves the oracle pipeline over HTTP.
//
// Routes:
//
//	POST /query   run the pipeline for one request carrying hex key material
//	GET  /health  node health report
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/anynomousfriend/Fathom-0x/internal/core/domain"
	"github.com/anynomousfriend/Fathom-0x/internal/core/ports/driving"
	"github.com/anynomousfriend/Fathom-0x/internal/logger"
)

const (
	// maxBodyBytes bounds request bodies. Requests carry only identifiers,
	// a question and key material.
	maxBodyBytes = 64 << 10

	shutdownTimeout = 30 * time.Second
)

// Server exposes the pipeline and health service over HTTP.
type Server struct {
	pipeline driving.Pipeline
	health   driving.HealthService
	router   chi.Router
}

// NewServer creates the HTTP adapter.
func NewServer(pipeline driving.Pipeline, health driving.HealthService) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("httpapi: pipeline is required")
	}
	if health == nil {
		return nil, errors.New("httpapi: health service is required")
	}

	s := &Server{pipeline: pipeline, health: health}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog)
	r.Get("/health", s.handleHealth)
	r.Post("/query", s.handleQuery)
	s.router = r

	return s, nil
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully. In-flight queries finish within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down HTTP API: %w", err)
		}
		return ctx.Err()
	}
}

// queryBody is the POST /query payload. The blob_id and encryption_key
// aliases are accepted for older clients.
type queryBody struct {
	QueryID        string `json:"query_id"`
	DocumentBlobID string `json:"document_blob_id"`
	BlobID         string `json:"blob_id"`
	Question       string `json:"question"`
	Key            string `json:"key"`
	EncryptionKey  string `json:"encryption_key"`
	IV             string `json:"iv"`
}

func (b queryBody) request() (domain.QueryRequest, error) {
	blobID := firstNonEmpty(b.DocumentBlobID, b.BlobID)
	keyHex := firstNonEmpty(b.Key, b.EncryptionKey)

	key, err := domain.DecodeKeyHex("key", keyHex)
	if err != nil {
		return domain.QueryRequest{}, err
	}
	iv, err := domain.DecodeKeyHex("iv", b.IV)
	if err != nil {
		clear(key)
		return domain.QueryRequest{}, err
	}
	return domain.QueryRequest{
		QueryID:        b.QueryID,
		DocumentBlobID: blobID,
		Question:       b.Question,
		DecryptionKey:  key,
		IV:             iv,
	}, nil
}

// QueryResponse is the POST /query reply.
type QueryResponse struct {
	*domain.PipelineResult

	Error string `json:"error,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body queryBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req, err := body.request()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := s.pipeline.Process(r.Context(), req)

	resp := QueryResponse{PipelineResult: result}
	if result.Err != nil {
		resp.Error = result.Err.Error()
	}
	writeJSON(w, statusFor(result), resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())
	status := http.StatusOK
	if report.Status != domain.HealthOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// statusFor maps a pipeline outcome to an HTTP status code.
func statusFor(result *domain.PipelineResult) int {
	switch result.State {
	case domain.StateRecorded:
		return http.StatusOK
	case domain.StateSkippedDuplicate:
		return http.StatusConflict
	}

	switch result.Failure {
	case domain.FailureInvalidInput:
		return http.StatusBadRequest
	case domain.FailureDecryption:
		return http.StatusUnprocessableEntity
	case domain.FailureDuplicate:
		return http.StatusConflict
	case domain.FailureFetch, domain.FailureGeneration, domain.FailureSubmission:
		return http.StatusBadGateway
	case domain.FailureCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.With(zap.Error(err)).Debug("writing response failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// accessLog logs one line per request. Bodies are never logged.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.With(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		).Debug("http request")
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
