// Package api exposes plan management and candidate comparisons over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/comparison"
	"github.com/spigell/hirelytics/internal/plan"
)

// UserHeader carries the caller identity.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

type Ledgers interface {
	Ledger(ctx context.Context, user string) (*plan.Ledger, error)
}

type Comparer interface {
	Run(ctx context.Context, req comparison.Request) (*comparison.Result, error)
}

type Options struct {
	// DefaultUser is used when a request has no UserHeader.
	DefaultUser string
	// Defaults fill the provider settings a comparison request leaves out.
	Defaults ai.Config
	Logger   *zap.Logger
}

type Server struct {
	ledgers  Ledgers
	comparer Comparer
	opts     Options
	logger   *zap.Logger
}

func New(ledgers Ledgers, comparer Comparer, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "default"
	}
	return &Server{ledgers: ledgers, comparer: comparer, opts: opts, logger: opts.Logger}
}

// Routes returns the router with all endpoints mounted.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	r.Get("/plan", s.getPlan)
	r.Post("/plan/upgrade", s.upgradePlan)
	r.Post("/projects/{projectID}/comparisons", s.compare)

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) user(r *http.Request) string {
	if u := strings.TrimSpace(r.Header.Get(UserHeader)); u != "" {
		return u
	}
	return s.opts.DefaultUser
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	ledger, err := s.ledgers.Ledger(r.Context(), s.user(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.Snapshot())
}

type upgradeRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) upgradePlan(w http.ResponseWriter, r *http.Request) {
	var req upgradeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	tier, err := plan.ParseTier(req.Tier)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_plan", err)
		return
	}

	ledger, err := s.ledgers.Ledger(r.Context(), s.user(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	if err := ledger.UpgradePlan(r.Context(), tier); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.Snapshot())
}

type compareRequest struct {
	CandidateIDs []string `json:"candidateIds"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Temperature  *float64 `json:"temperature"`
	MaxTokens    *int     `json:"maxTokens"`
}

func (s *Server) compare(w http.ResponseWriter, r *http.Request) {
	var body compareRequest
	if err := decode(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	cfg := s.opts.Defaults
	cfg.APIKey = ""
	if body.Provider != "" {
		cfg.Provider = ai.Provider(body.Provider)
		if body.Provider != string(s.opts.Defaults.Provider) {
			cfg.Model = ""
		}
	}
	if body.Model != "" {
		cfg.Model = body.Model
	}
	if body.Temperature != nil {
		cfg.Temperature = *body.Temperature
	}
	if body.MaxTokens != nil {
		cfg.MaxTokens = *body.MaxTokens
	}

	res, err := s.comparer.Run(r.Context(), comparison.Request{
		UserID:       s.user(r),
		ProjectID:    chi.URLParam(r, "projectID"),
		CandidateIDs: body.CandidateIDs,
		Config:       cfg,
	})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case comparison.KindInsufficientCandidates, comparison.KindCandidateLimit,
		comparison.KindInvalidProvider, comparison.KindInvalidConfig:
		return http.StatusBadRequest
	case comparison.KindNotFound:
		return http.StatusNotFound
	case comparison.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case comparison.KindAllExtractionsFailed, comparison.KindExtraction, comparison.KindInvariantViolation:
		return http.StatusUnprocessableEntity
	case comparison.KindProviderHTTP, comparison.KindProviderParse, comparison.KindProviderTransport:
		return http.StatusBadGateway
	case comparison.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	kind := comparison.Kind(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("kind", kind), zap.Error(err))
	}
	writeError(w, status, kind, err)
}

type errorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorBody{Kind: kind, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}
