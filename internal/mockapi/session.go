package mockapi

import (
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// sessions tracks issued bearer tokens.
type sessions struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newSessions() *sessions {
	return &sessions{tokens: make(map[string]string)}
}

func (s *sessions) issue(user string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = user
	s.mu.Unlock()
	return token
}

func (s *sessions) revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[token]; !ok {
		return false
	}
	delete(s.tokens, token)
	return true
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// handleLogin accepts any non-empty username and password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login payload: "+err.Error())
		return
	}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		writeError(w, http.StatusUnauthorized, "username and password are required")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"token":    s.sessions.issue(in.Username),
		"username": in.Username,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.revoke(bearerToken(r)) {
		writeError(w, http.StatusUnauthorized, "no active session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
