// Package api serves the public lead, verification and match endpoints, the admin dashboard
// API and the ops endpoints.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	stderrors "matching-platform/internal/common/errors"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/metrics"
	"matching-platform/internal/matching"
	"matching-platform/internal/recommend"
	"matching-platform/internal/store"
	"matching-platform/pkg/registry"
)

const (
	defaultMaxBodyBytes = 64 << 10
	defaultExportWindow = 30 * 24 * time.Hour
	defaultStatsWindow  = 7 * 24 * time.Hour
)

type LeadStore interface {
	CreateLead(ctx context.Context, lead *store.Lead) (string, error)
	Get(ctx context.Context, id string) (*store.Lead, error)
	MarkVerified(ctx context.Context, id, channel string) error
	ListLeads(ctx context.Context, since time.Time) ([]store.Lead, error)
}

type TherapistLister interface {
	List(ctx context.Context, limit, offset int) ([]store.Therapist, error)
}

type MatchReader interface {
	ListForPatient(ctx context.Context, patientID string) ([]store.Match, error)
}

type ErrorLog interface {
	ListErrors(ctx context.Context, limit int) ([]store.Event, error)
}

type Verifier interface {
	Send(ctx context.Context, channel, contact, name string) error
	Verify(ctx context.Context, channel, contact, code string) error
}

type Recommender interface {
	Recommend(ctx context.Context, patientID string, limit int) (*recommend.Recommendation, error)
	Explain(ctx context.Context, patientID string) ([]matching.Explanation, error)
}

// Workflow starts lead processes and correlates messages to running ones.
type Workflow interface {
	StartLeadWorkflow(ctx context.Context, processID string, variables interface{}) (int64, error)
	PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error
}

type Indexer interface {
	IndexTherapist(ctx context.Context, t *store.Therapist) error
}

type Tracker interface {
	Track(eventType, source string, props map[string]interface{})
	Error(eventType, source string, err error, props map[string]interface{})
}

// StatsFunc loads dashboard counters for the window starting at since.
type StatsFunc func(ctx context.Context, since time.Time) (*store.Stats, error)

// Check is a readiness probe for one dependency.
type Check func(ctx context.Context) error

// Deps holds the collaborators behind the routes. Workflow and Directory are optional: without
// a workflow client verification codes are sent inline, without a directory the reindex route
// is not registered.
type Deps struct {
	Leads       LeadStore
	Therapists  TherapistLister
	Matches     MatchReader
	Errors      ErrorLog
	Verifier    Verifier
	Recommender Recommender
	Workflow    Workflow
	Directory   Indexer
	Tracker     Tracker
	Stats       StatsFunc
	Registry    *registry.ActivityRegistry
	Checks      map[string]Check
}

type Options struct {
	AdminToken      string
	LeadProcessID   string
	VerifiedMessage string
	MaxResults      int
	MaxBodyBytes    int64
	ExportWindow    time.Duration
}

type Server struct {
	opts Options
	deps Deps
	log  logger.Logger
	mux  *http.ServeMux
}

func NewServer(opts Options, deps Deps, log logger.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.ExportWindow <= 0 {
		opts.ExportWindow = defaultExportWindow
	}
	if deps.Tracker == nil {
		deps.Tracker = noopTracker{}
	}

	s := &Server{
		opts: opts,
		deps: deps,
		log:  log.WithFields(map[string]interface{}{"component": "api"}),
		mux:  http.NewServeMux(),
	}
	s.register()
	return s
}

// Handler returns the routed handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) register() {
	s.handle("POST /api/public/leads", "leads", s.handleCreateLead)
	s.handle("POST /api/public/verification/send", "verification_send", s.handleSendCode)
	s.handle("POST /api/public/verification/verify", "verification_verify", s.handleVerifyCode)
	s.handle("GET /api/public/matches/{patientId}", "matches", s.handleMatches)

	s.handle("GET /api/admin/stats", "admin_stats", s.admin(s.handleStats))
	s.handle("GET /api/admin/therapists", "admin_therapists", s.admin(s.handleTherapists))
	s.handle("GET /api/admin/errors", "admin_errors", s.admin(s.handleErrors))
	s.handle("GET /api/admin/matches/{patientId}/explain", "admin_explain", s.admin(s.handleExplain))
	s.handle("GET /api/admin/leads/export", "admin_export", s.admin(s.handleExport))
	s.handle("GET /api/admin/workers", "admin_workers", s.admin(s.handleWorkers))
	if s.deps.Directory != nil {
		s.handle("POST /api/admin/directory/reindex", "admin_reindex", s.admin(s.handleReindex))
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /ready", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// handle registers h behind the request counter.
func (s *Server) handle(pattern, route string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status/100)+"xx").Inc()
	})
}

// admin rejects requests without the configured bearer token. An empty token disables the
// admin surface.
func (s *Server) admin(h http.HandlerFunc) http.HandlerFunc {
	want := []byte(s.opts.AdminToken)
	return func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if len(want) == 0 || !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			s.writeError(w, r, stderrors.NewUnauthorizedError("missing or invalid admin token"))
			return
		}
		h(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type errorBody struct {
	Code     stderrors.ErrorCode    `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to its status code. Internal details are logged, not returned.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := stderrors.AsStandardError(err)
	status := stderrors.HTTPStatus(stdErr.Code)

	body := errorBody{Code: stdErr.Code, Message: stdErr.Message, Metadata: stdErr.Metadata}
	if status < http.StatusInternalServerError {
		body.Details = stdErr.Details
	}

	fields := map[string]interface{}{
		"path":   r.URL.Path,
		"code":   stdErr.Code,
		"status": status,
	}
	if status >= http.StatusInternalServerError {
		fields["details"] = stdErr.Details
		s.log.Error("request failed", fields)
	} else {
		s.log.Debug("request rejected", fields)
	}
	writeJSON(w, status, errorResponse{Error: body})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady runs every configured check and reports each result.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": results})
}

type noopTracker struct{}

func (noopTracker) Track(string, string, map[string]interface{})        {}
func (noopTracker) Error(string, string, error, map[string]interface{}) {}
