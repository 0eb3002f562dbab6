// internal/httpapi/server.go
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"formsync/internal/common/logger"
	"formsync/internal/dedup"
)

// Server exposes the export artifacts plus health and metrics. The
// download handler only ever reads fully-published artifacts because
// exports are renamed into place.
type Server struct {
	exportDir string
	store     dedup.Store
	logger    logger.Logger
	httpSrv   *http.Server
}

func NewServer(addr, exportDir string, store dedup.Store, log logger.Logger) *Server {
	s := &Server{
		exportDir: exportDir,
		store:     store,
		logger:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/download/", s.handleDownload)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/admin/reset", s.handleReset)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the server's routing handler.
func (s *Server) Handler() http.Handler { return s.httpSrv.Handler }

func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", map[string]interface{}{"addr": s.httpSrv.Addr})
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/download/")
	if name == "" || name != filepath.Base(name) {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.exportDir, name)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	http.ServeFile(w, r, path)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleReset drops all delivered ids so every source re-delivers from
// scratch. Admin operation; POST only.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.store.Reset(r.Context()); err != nil {
		s.logger.Error("store reset failed", map[string]interface{}{"error": err.Error()})
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}

	s.logger.Warn("dedup store reset", nil)
	w.WriteHeader(http.StatusNoContent)
}
