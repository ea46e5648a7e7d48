package api

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"demo-console/console"
)

// RegisterRoutes wires the console API, the live connection and the page
// assets. demosFS may be nil when snippets are not served by this process.
func RegisterRoutes(manager *console.Manager, staticFS, demosFS fs.FS, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)

	h := &handler{manager: manager, log: log.Named("api")}

	// REST API
	r.Get("/api/catalog", h.getCatalog)
	r.Get("/api/sessions", h.listSessions)
	r.Post("/api/sessions", h.createSession)
	r.Get("/api/sessions/{id}", h.getSession)
	r.Delete("/api/sessions/{id}", h.killSession)

	r.Post("/api/sessions/{id}/select", h.selectSnippet)
	r.Post("/api/sessions/{id}/focus", h.focus)
	r.Post("/api/sessions/{id}/duplicate", h.duplicate)
	r.Post("/api/sessions/{id}/run", h.run)

	// WebSocket
	r.Get("/api/sessions/{id}/ws", h.handleWS)

	// Static sub-FS: strip the "static/" prefix present in the embed.FS.
	// When staticFS is already rooted at the assets, Sub still succeeds, so
	// probe index.html to tell the two apart.
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		staticSub = staticFS
	} else if _, statErr := fs.Stat(staticSub, "index.html"); statErr != nil {
		staticSub = staticFS
	}

	// http.FileServer redirects requests for index.html to "./", so the page
	// is read and sent directly.
	r.Get("/", serveFile(staticSub, "index.html"))

	fileServer := http.FileServer(http.FS(staticSub))
	r.Get("/css/*", fileServer.ServeHTTP)
	r.Get("/js/*", fileServer.ServeHTTP)

	if demosFS != nil {
		r.Handle("/demos/*", http.StripPrefix("/demos/", http.FileServer(http.FS(demosFS))))
	}

	return r
}

// serveFile returns a handler that reads a single file from fsys and sends it.
func serveFile(fsys fs.FS, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}

// requestLogger logs one line per request in place of middleware.Logger.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

type handler struct {
	manager *console.Manager
	log     *zap.Logger
}
