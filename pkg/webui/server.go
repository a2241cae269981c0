// Package webui serves the chat page and the JSON API behind it.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"

	"outreach/pkg/conversation"
	"outreach/pkg/logx"
	"outreach/pkg/session"
	"outreach/pkg/verify"
)

//go:embed web/templates/*.html
var templateFS embed.FS

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "outreach_session"

// Server is the web front end. Turns of one session run one at a time.
type Server struct {
	controller *conversation.Controller
	sessions   session.Store
	locks      *session.Locks
	verifier   *verify.Verifier
	metrics    http.Handler
	markdown   goldmark.Markdown
	templates  *template.Template
	logger     *logx.Logger
}

// NewServer creates a server. metrics may be nil to leave /metrics unrouted.
func NewServer(controller *conversation.Controller, sessions session.Store, verifier *verify.Verifier, metrics http.Handler) *Server {
	return &Server{
		controller: controller,
		sessions:   sessions,
		locks:      session.NewLocks(),
		verifier:   verifier,
		metrics:    metrics,
		markdown:   goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
		templates:  template.Must(template.ParseFS(templateFS, "web/templates/*.html")),
		logger:     logx.NewLogger("webui"),
	}
}

// RegisterRoutes adds every route to mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/check-api", s.handleCheckAPI)
	mux.HandleFunc("/verify-api", s.handleVerifyAPI)
	mux.HandleFunc("/update-api-keys", s.handleUpdateAPIKeys)
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// StartServer listens on addr in the background and shuts down when ctx ends.
// The returned channel yields the listener's terminal error, if any.
func (s *Server) StartServer(ctx context.Context, addr string) <-chan error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)

	s.logger.Info("🌐 Starting web UI server on %s", addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error: %v", err)
			errCh <- err
		}
		close(errCh)
	}()

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down web UI server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		//nolint:contextcheck // Parent context is cancelled; we need a fresh context for shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown failed: %v", err)
		}
	}()

	return errCh
}

// sessionID returns the caller's session id, issuing a new cookie if needed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}
