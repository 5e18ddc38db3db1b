package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/onepanelio/podlogs/kube"
	"github.com/onepanelio/podlogs/manager"
	"github.com/onepanelio/podlogs/metrics"
	"github.com/onepanelio/podlogs/model"
	"github.com/onepanelio/podlogs/util"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Server is the HTTP and websocket front of the service. It serves the
// viewer UI, the pod listing API, and the websocket endpoint the session
// manager streams through.
type Server struct {
	cluster   kube.Cluster
	manager   *manager.Manager
	metrics   *metrics.Metrics
	router    chi.Router
	index     *template.Template
	templates string

	httpServer *http.Server
}

// NewServer wires up the routes. templatesDir holds index.html plus the
// css and js asset directories.
func NewServer(cluster kube.Cluster, mgr *manager.Manager, m *metrics.Metrics, templatesDir string) (*Server, error) {
	index, err := template.ParseFiles(filepath.Join(templatesDir, "index.html"))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cluster:   cluster,
		manager:   mgr,
		metrics:   m,
		index:     index,
		templates: templatesDir,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/", s.handleIndex)
	router.Get("/assets/*", s.handleAsset)
	router.Get("/cluster-name", s.handleClusterName)
	router.Get("/pods/{namespace}", s.handleListPods)
	router.Get("/ws", s.handleWebsocket)
	router.Get("/healthz", s.handleHealth)
	router.Handle("/metrics", m.Handler())

	s.router = router

	return s, nil
}

// Handler returns the root handler, wrapped the same way ListenAndServe
// serves it.
func (s *Server) Handler() http.Handler {
	return handlers.CORS()(s.router)
}

// ListenAndServe serves on addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	log.Printf("Starting HTTP server on %v", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown stops accepting new connections and drains in-flight requests,
// bounded by ctx. Hijacked websocket connections are not waited on; their
// sessions are torn down by the manager's own shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, nil); err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Error("Render index failed.")
	}
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")

	switch filepath.Ext(name) {
	case ".css":
		http.ServeFile(w, r, filepath.Join(s.templates, "css", filepath.Base(name)))
	case ".js":
		http.ServeFile(w, r, filepath.Join(s.templates, "js", filepath.Base(name)))
	default:
		s.writeError(w, util.NewUserError(codes.InvalidArgument, "File type not supported."))
	}
}

func (s *Server) handleClusterName(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.cluster.ClusterName())
}

func (s *Server) handleListPods(w http.ResponseWriter, r *http.Request) {
	namespace := chi.URLParam(r, "namespace")

	pods, err := s.cluster.ListPods(r.Context(), namespace)
	if err != nil {
		log.WithFields(log.Fields{
			"Namespace": namespace,
			"Error":     err.Error(),
		}).Error("List pods failed.")

		if apierrors.IsNotFound(err) {
			s.writeError(w, util.NewUserError(codes.NotFound, "Namespace not found."))
			return
		}
		s.writeError(w, util.NewUserError(codes.Unknown, "Unknown error."))
		return
	}

	if pods == nil {
		pods = []*model.Pod{}
	}

	writeJSON(w, http.StatusOK, pods)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps the error's code onto an HTTP status and writes a JSON
// error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	writeJSON(w, runtime.HTTPStatusFromCode(st.Code()), map[string]string{
		"error": st.Message(),
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithFields(log.Fields{
			"Error": err.Error(),
		}).Error("Write response failed.")
	}
}
