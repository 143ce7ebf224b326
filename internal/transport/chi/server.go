// Package chi serves the searchsync HTTP API on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchsync/internal/domain"
	"github.com/kailas-cloud/searchsync/internal/domain/document"
	"github.com/kailas-cloud/searchsync/internal/domain/event"
	"github.com/kailas-cloud/searchsync/internal/domain/record"
	"github.com/kailas-cloud/searchsync/internal/domain/search/request"
	"github.com/kailas-cloud/searchsync/internal/logger"
	healthuc "github.com/kailas-cloud/searchsync/internal/usecase/health"
	"github.com/kailas-cloud/searchsync/internal/usecase/indexsync"
	searchuc "github.com/kailas-cloud/searchsync/internal/usecase/search"
)

const maxBulkSize = 1000

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers.
type Server struct {
	search        *searchuc.Service
	sync          *indexsync.Engine
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	sync *indexsync.Engine,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		sync:   sync,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		exposedHandler(domain.ErrInvalidDocument, http.StatusBadRequest, ErrorCodeValidationFailed),
		exposedHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		exposedHandler(domain.ErrDocumentMissing, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrQueueFull, http.StatusTooManyRequests, ErrorCodeQueueFull),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, ErrorCodeTimeout),
		sentinelHandler(domain.ErrNotConnected, http.StatusServiceUnavailable, ErrorCodeBackendUnavailable),
		sentinelHandler(domain.ErrConnection, http.StatusServiceUnavailable, ErrorCodeBackendUnavailable),
		sentinelHandler(domain.ErrSearch, http.StatusBadGateway, ErrorCodeBackendError),
		sentinelHandler(domain.ErrIndexOperation, http.StatusBadGateway, ErrorCodeBackendError),
	}
	return s
}

// Search handles GET /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	q, err := params.toQuery()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	res, err := s.search.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Suggest handles GET /api/v1/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	var params SuggestParams
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "q", query, &params.Q); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("q", err))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "size", query, &params.Size); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("size", err))
		return
	}
	size := request.DefaultSuggestSize
	if params.Size != nil {
		size = *params.Size
	}

	out, err := s.search.Suggest(r.Context(), params.Q, request.ClampSuggestSize(size))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if out == nil {
		out = []string{}
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Query: params.Q, Suggestions: out})
}

// Stats handles GET /api/v1/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.search.GetStats(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	byType := make(map[string]int64, len(stats.ByType))
	for t, n := range stats.ByType {
		byType[string(t)] = n
	}
	records := make(map[string]int)
	for st, n := range s.sync.StatusCounts() {
		records[string(st)] = n
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Total:  stats.Total,
		ByType: byType,
		Sync: SyncStats{
			Mode:    string(s.sync.Config().Mode),
			Queue:   s.sync.QueueLen(),
			Records: records,
		},
	})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.search.GetDocument(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CreateDocument handles POST /api/v1/sync/documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.writeSyncResult(w, r, s.sync.OnCreate(r.Context(), &doc))
}

// UpdateDocument handles PUT /api/v1/sync/documents/{id}.
func (s *Server) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var doc document.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if doc.ID != "" && doc.ID != id {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "body id does not match path id")
		return
	}
	doc.ID = id
	s.writeSyncResult(w, r, s.sync.OnUpdate(r.Context(), &doc))
}

// DeleteDocument handles DELETE /api/v1/sync/documents/{id}?type=.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var raw string
	if err := runtime.BindQueryParameter("form", true, true, "type", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("type", err))
		return
	}
	t, err := document.ParseType(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	s.writeSyncResult(w, r, s.sync.OnDelete(r.Context(), id, t))
}

// BulkSync handles POST /api/v1/sync/bulk.
func (s *Server) BulkSync(w http.ResponseWriter, r *http.Request) {
	var req BulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "documents must not be empty")
		return
	}
	if len(req.Documents) > maxBulkSize {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("too many documents: %d (max %d)", len(req.Documents), maxBulkSize))
		return
	}

	res, err := s.sync.BulkSync(r.Context(), req.Documents)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RetryFailed handles POST /api/v1/sync/retry[?reset=true].
func (s *Server) RetryFailed(w http.ResponseWriter, r *http.Request) {
	var reset *bool
	if err := runtime.BindQueryParameter("form", true, false, "reset", r.URL.Query(), &reset); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("reset", err))
		return
	}
	var opts []indexsync.RetryOption
	if reset != nil && *reset {
		opts = append(opts, indexsync.WithResetBudget())
	}
	writeJSON(w, http.StatusOK, s.sync.RetryFailed(r.Context(), opts...))
}

// Flush handles POST /api/v1/sync/flush.
func (s *Server) Flush(w http.ResponseWriter, r *http.Request) {
	n := s.sync.Flush(r.Context())
	writeJSON(w, http.StatusOK, FlushResponse{Processed: n, Remaining: s.sync.QueueLen()})
}

// ListRecords handles GET /api/v1/sync/records[?status=].
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	var status *string
	if err := runtime.BindQueryParameter("form", true, false, "status", r.URL.Query(), &status); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("status", err))
		return
	}

	var items []record.Record
	if status != nil && *status != "" {
		st := record.Status(*status)
		if !validStatus(st) {
			writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "unknown status "+*status)
			return
		}
		items = s.sync.RecordsByStatus(st)
	} else {
		items = s.sync.Records()
	}
	if items == nil {
		items = []record.Record{}
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Items: items, Total: len(items)})
}

// GetRecord handles GET /api/v1/sync/records/{id}.
func (s *Server) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, found := s.sync.Record(id)
	if !found {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "no sync record for "+id)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ResetRecords handles DELETE /api/v1/sync/records[?id=a,b].
func (s *Server) ResetRecords(w http.ResponseWriter, r *http.Request) {
	var ids *[]string
	if err := runtime.BindQueryParameter("form", false, false, "id", r.URL.Query(), &ids); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("id", err))
		return
	}
	if ids != nil {
		s.sync.Reset(*ids...)
	} else {
		s.sync.Reset()
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Details: report.Details,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// writeSyncResult reports applied events as 200, queued ones as 202.
func (s *Server) writeSyncResult(w http.ResponseWriter, r *http.Request, res event.Result) {
	if !res.Success {
		s.handleDomainError(w, r, res.Cause)
		return
	}
	status := http.StatusOK
	if res.SyncedAt == nil {
		status = http.StatusAccepted
	}
	writeJSON(w, status, res)
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", gochi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, invalidParam("id", err))
		return "", false
	}
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "id is required")
		return "", false
	}
	return id, true
}

func validStatus(st record.Status) bool {
	for _, s := range record.Statuses() {
		if s == st {
			return true
		}
	}
	return false
}

func invalidParam(name string, err error) string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", name, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// sentinelHandler answers with the sentinel text only, hiding backend details.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

// exposedHandler answers with the full message; used for caller mistakes.
func exposedHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, err.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.FromContext(r.Context()).Error("unhandled error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
