// Package server serves rendered artifacts and the corpus API over HTTP.
//
// The server exposes:
//   - GET /healthz                 liveness probe
//   - GET /api/documents           all document records with dirty state
//   - GET /api/documents/{slug}    a single document record
//   - GET /api/graph               the dependency graph as JSON
//   - GET /api/layers              topological render layers
//   - GET /docs/*                  rendered artifacts from the output dir
//
// Slugs may contain slashes (namespaced documents), so the document route
// uses a wildcard rather than a single path parameter.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loomkit/loom/pkg/dag"
	"github.com/loomkit/loom/pkg/store"
)

// Server serves the corpus API and rendered artifacts.
type Server struct {
	store       store.Store
	artifactDir string
	logger      *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server backed by a composition store and an artifact
// directory.
func New(st store.Store, artifactDir string, opts ...Option) *Server {
	s := &Server{
		store:       st,
		artifactDir: artifactDir,
		logger:      log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP route tree.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/documents", s.handleDocuments)
		r.Get("/documents/*", s.handleDocument)
		r.Get("/graph", s.handleGraph)
		r.Get("/layers", s.handleLayers)
	})

	fileServer := http.StripPrefix("/docs/", http.FileServer(http.Dir(s.artifactDir)))
	r.Get("/docs/*", fileServer.ServeHTTP)

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("serving", "addr", addr, "artifacts", s.artifactDir)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// logRequests logs each request with method, path, status, and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// documentResponse is a document record plus its derived dirty state.
type documentResponse struct {
	store.DocumentRecord
	Dirty bool `json:"dirty"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]documentResponse, len(records))
	for i, rec := range records {
		out[i] = documentResponse{DocumentRecord: rec, Dirty: rec.Dirty()}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if slug == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing document slug"))
		return
	}

	rec, err := s.store.Document(r.Context(), slug)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{DocumentRecord: *rec, Dirty: rec.Dirty()})
}

// graphResponse mirrors the JSON graph export format.
type graphResponse struct {
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

type graphNode struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Dirty bool   `json:"dirty"`
}

type graphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	edges, err := s.store.Edges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := graphResponse{
		Nodes: make([]graphNode, len(records)),
		Edges: make([]graphEdge, 0, len(edges)),
	}
	for i, rec := range records {
		resp.Nodes[i] = graphNode{ID: rec.Slug, Title: rec.Title, Dirty: rec.Dirty()}
	}
	for _, e := range edges {
		// Stored dependent -> dependency; the wire format flows
		// dependency -> dependent like dag.Edge.
		resp.Edges = append(resp.Edges, graphEdge{From: e.Dependency, To: e.Dependent})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLayers reports the stored graph's topological layers, the order a
// full render would execute in.
func (s *Server) handleLayers(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.Documents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	edges, err := s.store.Edges(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	g, err := graphFromRecords(records, edges)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	layers := g.Layers()
	if layers == nil {
		layers = [][]string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"layers": layers})
}

// graphFromRecords rebuilds a dag.Graph from stored state.
// Used by handlers that need traversal rather than raw records.
func graphFromRecords(records []store.DocumentRecord, edges []store.EdgeRecord) (*dag.Graph, error) {
	g := dag.New()
	for _, rec := range records {
		if err := g.AddNode(dag.Node{ID: rec.Slug, Meta: dag.Metadata{"title": rec.Title}}); err != nil {
			return nil, err
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(dag.Edge{From: e.Dependency, To: e.Dependent}); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// =============================================================================
// Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
