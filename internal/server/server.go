// Package server exposes the report pipeline over HTTP.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lvonguyen/reportforge/internal/cache"
	"github.com/lvonguyen/reportforge/internal/config"
	"github.com/lvonguyen/reportforge/internal/ingest"
	"github.com/lvonguyen/reportforge/internal/observability"
	"github.com/lvonguyen/reportforge/internal/report"
	"github.com/lvonguyen/reportforge/internal/report/assemble"
)

// Server handles report generation requests.
type Server struct {
	config    *config.Config
	telemetry *observability.Telemetry
	cache     *cache.BundleCache
	limiter   *RateLimiter
	logger    *zap.Logger
}

// New creates a new server.
func New(cfg *config.Config, tel *observability.Telemetry, bundleCache *cache.BundleCache, redisClient *redis.Client) *Server {
	return &Server{
		config:    cfg,
		telemetry: tel,
		cache:     bundleCache,
		limiter:   NewRateLimiter(redisClient, cfg.Server.RateLimitPerMinute, tel.Logger()),
		logger:    tel.Logger(),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.ReadTimeout))
	if s.telemetry.Metrics() != nil {
		r.Use(s.metricsMiddleware)
	}

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	if s.telemetry.Metrics() != nil {
		r.Method(http.MethodGet, "/metrics", s.telemetry.MetricsHandler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.limiter.Middleware).Post("/reports", s.handleGenerateReport)
		r.With(s.limiter.Middleware).Post("/reports/upload", s.handleUploadReport)
		r.Get("/reports/meta", s.handleReportMeta)
	})

	return r
}

// metricsMiddleware records request counts and latency per route pattern.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		m := s.telemetry.Metrics()
		path := chi.RouteContext(r.Context()).RoutePattern()
		m.RequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		m.RequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// TableInput is one raw monthly table in a generation request.
type TableInput struct {
	Period  string     `json:"period"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// GenerateRequest is the body of POST /api/v1/reports.
type GenerateRequest struct {
	Tables       []TableInput `json:"tables"`
	MonthCount   int          `json:"month_count,omitempty"`
	TopHosts     int          `json:"top_hosts,omitempty"`
	TopUsers     int          `json:"top_users,omitempty"`
	TopCountries int          `json:"top_countries,omitempty"`
	TopFiles     int          `json:"top_files,omitempty"`
}

// GenerateResponse is the serialized bundle returned to the client.
type GenerateResponse struct {
	ReportID    string                   `json:"report_id"`
	GeneratedAt time.Time                `json:"generated_at"`
	Months      []string                 `json:"months"`
	RecordCount int                      `json:"record_count"`
	Order       []string                 `json:"order"`
	Tables      map[string]*tablePayload `json:"tables"`
}

type tablePayload struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodySize)

	var req GenerateRequest
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if len(req.Tables) == 0 {
		writeError(w, http.StatusBadRequest, "at least one table is required")
		return
	}

	cacheKey := s.cacheKey(req)
	if s.serveCached(w, r, cacheKey) {
		return
	}

	inputs := make([]assemble.MonthTable, 0, len(req.Tables))
	for _, in := range req.Tables {
		rows := make([][]string, len(in.Rows))
		copy(rows, in.Rows)
		inputs = append(inputs, assemble.MonthTable{
			Period: in.Period,
			Table:  &report.Table{Columns: in.Columns, Rows: rows},
		})
	}

	s.respondBundle(w, r, start, inputs, s.options(req), cacheKey)
}

// handleUploadReport accepts one export file per month as a multipart form,
// decodes each via the ingest layer (CSV or XLSX by extension), and tags its
// records with the filename stem as the period label. Top-N and month-count
// overrides arrive as ordinary form values.
func (s *Server) handleUploadReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodySize)
	if err := r.ParseMultipartForm(s.config.Server.MaxBodySize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	var files []*multipart.FileHeader
	for _, fhs := range r.MultipartForm.File {
		files = append(files, fhs...)
	}
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one export file is required")
		return
	}
	// Stable order so the cache key does not depend on form field order.
	sort.Slice(files, func(i, j int) bool { return files[i].Filename < files[j].Filename })

	req := GenerateRequest{
		MonthCount:   formInt(r, "month_count"),
		TopHosts:     formInt(r, "top_hosts"),
		TopUsers:     formInt(r, "top_users"),
		TopCountries: formInt(r, "top_countries"),
		TopFiles:     formInt(r, "top_files"),
	}

	var digest bytes.Buffer
	inputs := make([]assemble.MonthTable, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("open %q: %v", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read %q: %v", fh.Filename, err))
			return
		}

		table, err := ingest.Read(bytes.NewReader(data), fh.Filename)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("decode %q: %v", fh.Filename, err))
			return
		}

		digest.WriteString(fh.Filename)
		digest.Write(data)
		inputs = append(inputs, assemble.MonthTable{
			Period: ingest.Period(fh.Filename),
			Table:  table,
		})
	}

	if optsJSON, err := json.Marshal(req); err == nil {
		digest.Write(optsJSON)
	}
	cacheKey := cache.Key(digest.Bytes())
	if s.serveCached(w, r, cacheKey) {
		return
	}

	s.respondBundle(w, r, start, inputs, s.options(req), cacheKey)
}

// serveCached writes the cached bundle for key if one exists.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string) bool {
	cached := s.cache.Get(r.Context(), key)
	if cached == nil {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "hit")
	w.WriteHeader(http.StatusOK)
	w.Write(cached)
	return true
}

// respondBundle assembles the bundle over the inputs and writes the response,
// mapping schema failures to 422 and everything else invalid to 400.
func (s *Server) respondBundle(w http.ResponseWriter, r *http.Request, start time.Time, inputs []assemble.MonthTable, opts assemble.Options, cacheKey string) {
	metrics := s.telemetry.Metrics()

	inputRows := 0
	for _, in := range inputs {
		inputRows += len(in.Table.Rows)
	}

	bundle, err := assemble.AssembleTables(inputs, opts)
	if err != nil {
		var schemaErr *report.SchemaError
		if errors.As(err, &schemaErr) {
			if metrics != nil {
				metrics.ReportsGenerated.WithLabelValues("schema_error").Inc()
			}
			s.logger.Warn("Report rejected on schema validation",
				zap.Strings("missing", schemaErr.Missing))
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   "schema_error",
				"message": schemaErr.Error(),
				"missing": schemaErr.Missing,
			})
			return
		}
		if metrics != nil {
			metrics.ReportsGenerated.WithLabelValues("error").Inc()
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := GenerateResponse{
		ReportID:    uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Months:      bundle.Months,
		RecordCount: len(bundle.Records),
		Order:       bundle.Names(),
		Tables:      make(map[string]*tablePayload, len(bundle.Tables)),
	}
	for name, tbl := range bundle.Tables {
		resp.Tables[name] = &tablePayload{
			Name:    tbl.Name,
			Columns: tbl.Columns,
			Rows:    tbl.Rows,
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	s.cache.Set(r.Context(), cacheKey, body)

	if metrics != nil {
		metrics.ReportsGenerated.WithLabelValues("ok").Inc()
		metrics.ReportDuration.Observe(time.Since(start).Seconds())
		metrics.RecordsProcessed.Add(float64(len(bundle.Records)))
		if dropped := inputRows - len(bundle.Records); dropped > 0 {
			metrics.RowsDropped.Add(float64(dropped))
		}
	}

	s.logger.Info("Report bundle generated",
		zap.String("report_id", resp.ReportID),
		zap.Int("records", len(bundle.Records)),
		zap.Strings("months", bundle.Months),
		zap.Duration("duration", time.Since(start)))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "miss")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleReportMeta describes the tables a bundle contains, in order.
func (s *Server) handleReportMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":     assemble.TableNames(),
		"max_months": assemble.MaxMonths,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// options merges request overrides onto configured defaults.
func (s *Server) options(req GenerateRequest) assemble.Options {
	rc := s.config.Report
	opts := assemble.Options{
		MonthCount:   rc.MaxMonths,
		TopHosts:     rc.TopHosts,
		TopUsers:     rc.TopUsers,
		TopCountries: rc.TopCountries,
		TopFiles:     rc.TopFiles,
	}
	if req.MonthCount > 0 {
		opts.MonthCount = req.MonthCount
	}
	if req.TopHosts > 0 {
		opts.TopHosts = req.TopHosts
	}
	if req.TopUsers > 0 {
		opts.TopUsers = req.TopUsers
	}
	if req.TopCountries > 0 {
		opts.TopCountries = req.TopCountries
	}
	if req.TopFiles > 0 {
		opts.TopFiles = req.TopFiles
	}
	return opts
}

// cacheKey digests the full request so any input or option change misses.
func (s *Server) cacheKey(req GenerateRequest) string {
	payload, err := json.Marshal(req)
	if err != nil {
		return cache.Key([]byte(fmt.Sprintf("%v", req)))
	}
	return cache.Key(payload)
}

func formInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.FormValue(name))
	if err != nil {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
