package server

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"langstory/internal/app"
	"langstory/internal/ratelimit"
	"langstory/internal/util"
	"langstory/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                      *app.App
	Development              bool
	RedisAddr                string
	RedisPassword            string
	SignupRateLimitPerMinute int
	LoginRateLimitPerMinute  int
}

// Server exposes the HTTP API.
type Server struct {
	app           *app.App
	mux           *http.ServeMux
	development   bool
	signupLimiter *ratelimit.FixedWindowLimiter
	loginLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Rate limiting on the
// credential endpoints is enabled only when a redis address is supplied.
func New(cfg Config) (*Server, error) {
	s := &Server{
		app:         cfg.App,
		mux:         http.NewServeMux(),
		development: cfg.Development,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		signupLimit := cfg.SignupRateLimitPerMinute
		if signupLimit <= 0 {
			signupLimit = 5
		}
		loginLimit := cfg.LoginRateLimitPerMinute
		if loginLimit <= 0 {
			loginLimit = 10
		}
		var err error
		s.signupLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "langstory:ratelimit:signup", signupLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init signup limiter: %w", err)
		}
		s.loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "langstory:ratelimit:login", loginLimit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init login limiter: %w", err)
		}
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped with the shared middleware.
func (s *Server) Router() http.Handler {
	var h http.Handler = s.mux
	h = s.recovered(h)
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	h = util.WithCORS(h)
	h = util.WithSecurityHeaders(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("/", s.handleStatus)
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// credential issuance, outside the auth gate
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/logout", s.handleLogout)

	// everything below requires a resolved user
	s.mux.Handle("/api/user/profile", s.authenticated(s.handleProfile))
	s.mux.Handle("/api/user/coin", s.authenticated(s.handleCoin))
	s.mux.Handle("/api/stories/", s.authenticated(s.handleStories))
	s.mux.Handle("/api/words/", s.authenticated(s.handleWords))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeFailure(w, http.StatusNotFound, "Not found")
		return
	}
	writeMessage(w, http.StatusOK, "Language Story App API running")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authHandler receives the resolved user as an explicit argument; there is
// no identity hidden in request context.
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeAppError(w, r, app.ErrNoToken, s.development)
			return
		}
		user, err := s.app.UserFromToken(token)
		if err != nil {
			writeAppError(w, r, err, s.development)
			return
		}
		next(w, r, user)
	})
}

// auth handlers

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "Too many signup attempts") {
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err, s.development)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "Too many login attempts") {
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		writeAppError(w, r, err, s.development)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeAppError(w, r, app.ErrNoToken, s.development)
		return
	}
	if err := s.app.Logout(token); err != nil {
		writeAppError(w, r, err, s.development)
		return
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

// user handlers

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	profile, err := s.app.Profile(user.ID)
	if err != nil {
		writeAppError(w, r, err, s.development)
		return
	}
	writeSuccess(w, http.StatusOK, profile)
}

func (s *Server) handleCoin(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		coin, err := s.app.Coin(user.ID)
		if err != nil {
			writeAppError(w, r, err, s.development)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]int{"coin": coin})
	case http.MethodPatch:
		var req struct {
			Coin *float64 `json:"coin"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		// Non-numeric and fractional values are invalid; the balance is an
		// integer set absolutely.
		if req.Coin == nil || *req.Coin != math.Trunc(*req.Coin) {
			writeAppError(w, r, app.ErrInvalidCoinValue, s.development)
			return
		}
		coin, err := s.app.SetCoin(user.ID, int(*req.Coin))
		if err != nil {
			writeAppError(w, r, err, s.development)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]int{"coin": coin})
	default:
		methodNotAllowed(w)
	}
}

// story handlers
//
// /api/stories/{language}
// /api/stories/{language}/{storyId}
// /api/stories/{language}/{storyId}/content
func (s *Server) handleStories(w http.ResponseWriter, r *http.Request, user domain.User) {
	parts := splitPath(r.URL.Path, "/api/stories/")
	switch len(parts) {
	case 1:
		language := parts[0]
		switch r.Method {
		case http.MethodGet:
			stories, err := s.app.ListStoriesSummary(user.ID, language)
			if err != nil {
				writeAppError(w, r, err, s.development)
				return
			}
			writeSuccess(w, http.StatusOK, stories)
		case http.MethodPost:
			var input app.StoryInput
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&input); err != nil {
				writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
				return
			}
			story, err := s.app.AddStory(user.ID, language, input)
			if err != nil {
				writeAppError(w, r, err, s.development)
				return
			}
			writeSuccess(w, http.StatusCreated, story)
		default:
			methodNotAllowed(w)
		}
	case 2:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteStory(user.ID, parts[0], parts[1]); err != nil {
			writeAppError(w, r, err, s.development)
			return
		}
		writeMessage(w, http.StatusOK, "Story deleted successfully")
	case 3:
		if parts[2] != "content" {
			writeFailure(w, http.StatusNotFound, "Not found")
			return
		}
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		story, err := s.app.GetStoryContent(user.ID, parts[0], parts[1])
		if err != nil {
			writeAppError(w, r, err, s.development)
			return
		}
		writeSuccess(w, http.StatusOK, story)
	default:
		writeFailure(w, http.StatusNotFound, "Not found")
	}
}

// word handlers
//
// /api/words/{language}
// /api/words/{language}/{wordId}
func (s *Server) handleWords(w http.ResponseWriter, r *http.Request, user domain.User) {
	parts := splitPath(r.URL.Path, "/api/words/")
	switch len(parts) {
	case 1:
		language := parts[0]
		switch r.Method {
		case http.MethodGet:
			words, err := s.app.ListWords(user.ID, language)
			if err != nil {
				writeAppError(w, r, err, s.development)
				return
			}
			writeSuccess(w, http.StatusOK, words)
		case http.MethodPost:
			var input app.WordInput
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&input); err != nil {
				writeFailure(w, http.StatusBadRequest, "Invalid JSON body")
				return
			}
			word, err := s.app.AddWord(user.ID, language, input)
			if err != nil {
				writeAppError(w, r, err, s.development)
				return
			}
			writeSuccess(w, http.StatusCreated, word)
		default:
			methodNotAllowed(w)
		}
	case 2:
		if r.Method != http.MethodDelete {
			methodNotAllowed(w)
			return
		}
		if err := s.app.DeleteWord(user.ID, parts[0], parts[1]); err != nil {
			writeAppError(w, r, err, s.development)
			return
		}
		writeMessage(w, http.StatusOK, "Word deleted successfully")
	default:
		writeFailure(w, http.StatusNotFound, "Not found")
	}
}

// recovered catches handler panics, logs them with request context, and
// answers with a generic 500.
func (s *Server) recovered(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			util.LoggerFromContext(r.Context()).Error("panic in handler",
				"panic", fmt.Sprintf("%v", rec),
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
			)
			msg := "Something went wrong!"
			if s.development {
				msg = fmt.Sprintf("Something went wrong: %v", rec)
			}
			writeFailure(w, http.StatusInternalServerError, msg)
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	if limiter.Allow(util.ClientIP(r)) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeFailure(w, http.StatusTooManyRequests, msg)
	return false
}

func splitPath(path, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeFailure(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// envelope is the uniform response wrapper used by every endpoint.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: true, Message: msg})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Message: msg})
}

func writeAppError(w http.ResponseWriter, r *http.Request, err error, development bool) {
	switch app.KindOf(err) {
	case app.KindInvalidInput:
		writeFailure(w, http.StatusBadRequest, err.Error())
	case app.KindUnauthenticated:
		writeFailure(w, http.StatusUnauthorized, err.Error())
	case app.KindNotFound:
		writeFailure(w, http.StatusNotFound, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("internal error",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
		)
		msg := "Server error"
		if development {
			msg = err.Error()
			if cause := unwrapCause(err); cause != nil {
				msg = fmt.Sprintf("Server error: %v", cause)
			}
		}
		writeFailure(w, http.StatusInternalServerError, msg)
	}
}

func unwrapCause(err error) error {
	type unwrapper interface{ Unwrap() error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return nil
}
