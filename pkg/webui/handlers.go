package webui

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"outreach/pkg/logx"
	"outreach/pkg/session"
	"outreach/pkg/verify"
	"outreach/pkg/version"
)

// NoEmailMessage is returned by /download before anything was generated.
const NoEmailMessage = "No email has been generated yet."

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// handleIndex implements GET / and starts the session over.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := s.sessionID(w, r)
	unlock := s.locks.Lock(id)
	err := s.sessions.Clear(r.Context(), id)
	unlock()
	if err != nil {
		s.logger.Error("Failed to reset session: %v", err)
		http.Error(w, "Failed to reset session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", map[string]string{"Version": version.Version}); err != nil {
		s.logger.Error("Failed to render index: %v", err)
	}
}

// handleChat implements POST /chat. A missing or malformed message is an
// empty message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	message := readMessage(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	id := s.sessionID(w, r)
	unlock := s.locks.Lock(id)
	defer unlock()

	state, err := session.Load(r.Context(), s.sessions, id)
	if err != nil {
		s.logger.Error("Failed to load session %s: %v", id, err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	ctx := logx.WithComponent(r.Context(), "session-"+id)
	reply := s.controller.Handle(ctx, state, message)

	if err := s.sessions.Set(r.Context(), id, state); err != nil {
		s.logger.Error("Failed to save session %s: %v", id, err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, reply)
}

func readMessage(body io.Reader) string {
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&fields); err != nil {
		return ""
	}
	var message string
	if err := json.Unmarshal(fields["message"], &message); err != nil {
		return ""
	}
	return message
}

// handleDownload implements GET /download. format=html renders the email.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := s.sessionID(w, r)
	unlock := s.locks.Lock(id)
	state, err := session.Load(r.Context(), s.sessions, id)
	unlock()
	if err != nil {
		s.logger.Error("Failed to load session %s: %v", id, err)
		http.Error(w, "Failed to load session", http.StatusInternalServerError)
		return
	}

	if state.Result == nil || state.Result.Text == "" {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": NoEmailMessage})
		return
	}
	text := state.Result.CleanText()

	if r.URL.Query().Get("format") == "html" {
		var buf bytes.Buffer
		if err := s.markdown.Convert([]byte(text), &buf); err != nil {
			s.logger.Error("Failed to render email: %v", err)
			http.Error(w, "Failed to render email", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(buf.Bytes())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"email": text})
}

// handleCheckAPI implements GET /check-api.
func (s *Server) handleCheckAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.verifier.Health(r.Context()))
}

func (s *Server) decodeKeys(w http.ResponseWriter, r *http.Request) (verify.KeyInput, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return verify.KeyInput{}, false
	}
	var in verify.KeyInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return verify.KeyInput{}, false
	}
	return in, true
}

// handleVerifyAPI implements POST /verify-api.
func (s *Server) handleVerifyAPI(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeKeys(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.verifier.VerifyKeys(r.Context(), in))
}

// handleUpdateAPIKeys implements POST /update-api-keys.
func (s *Server) handleUpdateAPIKeys(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeKeys(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, s.verifier.UpdateKeys(r.Context(), in))
}

// handleHealth implements GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}
