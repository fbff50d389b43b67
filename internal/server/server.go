// Package server exposes the design catalog over HTTP: listings, the
// material + specifications lookup, design file downloads, health and
// metrics.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/taigrr/designview/pkg/catalog"
)

// Options configures a Server.
type Options struct {
	// PublicURL prefixes file URLs in lookup responses, e.g.
	// "https://designs.example.com". Empty derives it from the request.
	PublicURL string
	Logger    *zap.Logger
	// Registry receives the metrics. Nil creates a private registry.
	Registry *prometheus.Registry
}

// Server serves one catalog.
type Server struct {
	catalog   *catalog.Catalog
	storage   catalog.Storage
	publicURL string
	log       *zap.Logger
	registry  *prometheus.Registry
	metrics   *Metrics
}

// New creates a server for cat with files under storage.
func New(cat *catalog.Catalog, storage catalog.Storage, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	return &Server{
		catalog:   cat,
		storage:   storage,
		publicURL: strings.TrimSuffix(opts.PublicURL, "/"),
		log:       opts.Logger,
		registry:  opts.Registry,
		metrics:   NewMetrics(opts.Registry),
	}
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler returns the complete instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHTTPHandlers("/api/", mux)
	mux.HandleFunc("/designs/{id}/file", s.handleDesignFile)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return s.instrument(mux)
}

// RegisterHTTPHandlers registers the catalog API. The prefix should include
// the trailing slash (e.g., "/api/").
func (s *Server) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	mux.HandleFunc(prefix+"materials", s.handleMaterials)
	mux.HandleFunc(prefix+"requirements", s.handleRequirements)
	mux.HandleFunc(prefix+"designs", s.handleDesigns)
	mux.HandleFunc(prefix+"designs/lookup", s.handleLookup)
	mux.HandleFunc(prefix+"designs/{id}", s.handleDesign)
}

// MaterialsResponse is the JSON response for GET /materials
type MaterialsResponse struct {
	Materials []catalog.Material `json:"materials"`
	Count     int                `json:"count"`
}

// RequirementResponse adds the comma separated form of the options.
type RequirementResponse struct {
	catalog.Requirement
	OptionsCSV string `json:"options_csv"`
}

// RequirementsResponse is the JSON response for GET /requirements
type RequirementsResponse struct {
	Requirements []RequirementResponse `json:"requirements"`
	Count        int                   `json:"count"`
}

// DesignsResponse is the JSON response for GET /designs
type DesignsResponse struct {
	Designs []catalog.Design `json:"designs"`
	Count   int              `json:"count"`
}

// LookupResponse is the JSON response for GET /designs/lookup. URL is what
// the viewer loads.
type LookupResponse struct {
	Design catalog.Design `json:"design"`
	URL    string         `json:"url"`
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	materials := s.catalog.Materials()
	writeJSON(w, http.StatusOK, MaterialsResponse{Materials: materials, Count: len(materials)})
}

func (s *Server) handleRequirements(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	reqs := s.catalog.Requirements()
	resp := RequirementsResponse{Requirements: make([]RequirementResponse, 0, len(reqs)), Count: len(reqs)}
	for _, req := range reqs {
		resp.Requirements = append(resp.Requirements, RequirementResponse{Requirement: req, OptionsCSV: req.OptionsCSV()})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDesigns handles GET /designs, optionally filtered by ?material=
func (s *Server) handleDesigns(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	material := r.URL.Query().Get("material")
	designs := []catalog.Design{}
	for _, d := range s.catalog.Designs() {
		if material == "" || d.MaterialID == material {
			designs = append(designs, d)
		}
	}
	writeJSON(w, http.StatusOK, DesignsResponse{Designs: designs, Count: len(designs)})
}

func (s *Server) handleDesign(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	d, err := s.catalog.Design(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleLookup handles GET /designs/lookup?material=<id>&spec=<k>:<v>...
// A design matches only when its specifications equal the given ones.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	q := r.URL.Query()
	material := q.Get("material")
	if material == "" {
		s.metrics.Lookups.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, "material is required")
		return
	}
	specs, err := catalog.ParseSpecifications(q["spec"])
	if err != nil {
		s.metrics.Lookups.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := s.catalog.Lookup(material, specs)
	if errors.Is(err, catalog.ErrNotFound) {
		s.metrics.Lookups.WithLabelValues("miss").Inc()
		writeError(w, http.StatusNotFound, "no design for this material and specifications")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.Lookups.WithLabelValues("hit").Inc()
	writeJSON(w, http.StatusOK, LookupResponse{Design: d, URL: s.fileURL(r, d.ID)})
}

// handleDesignFile handles GET /designs/{id}/file
func (s *Server) handleDesignFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d, err := s.catalog.Design(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	path, err := s.storage.Path(d.File)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.log.Warn("design file missing", zap.String("design", d.ID), zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusNotFound, "design file missing")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+d.File+`"`)
	cw := &countingWriter{ResponseWriter: w}
	http.ServeContent(cw, r, d.File, info.ModTime(), f)
	s.metrics.BytesServed.Add(float64(cw.n))
}

func (s *Server) fileURL(r *http.Request, id string) string {
	base := s.publicURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/designs/" + id + "/file"
}

// UpdateCatalogGauges refreshes the record count gauges.
func (s *Server) UpdateCatalogGauges() {
	m, req, d := s.catalog.Counts()
	s.metrics.CatalogSize.WithLabelValues("materials").Set(float64(m))
	s.metrics.CatalogSize.WithLabelValues("requirements").Set(float64(req))
	s.metrics.CatalogSize.WithLabelValues("designs").Set(float64(d))
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.Requests.WithLabelValues(route, strconv.Itoa(sw.status)).Inc()
		s.metrics.Duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

type countingWriter struct {
	http.ResponseWriter
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.n += int64(n)
	return n, err
}
