package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"legalgpt/server/internal/config"
	"legalgpt/server/internal/model"
	"legalgpt/server/internal/rag"
	"legalgpt/server/internal/ratelimit"
	"legalgpt/server/internal/store"
	"legalgpt/server/internal/token"
)

const (
	refreshCookieName = "refreshToken"
	minPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Server struct {
	cfg     config.Config
	store   store.Store
	tokens  *token.Service
	limiter *ratelimit.Limiter
	chat    *rag.Pipeline
	logger  *slog.Logger
}

// NewServer wires the auth endpoints. chat may be nil, which disables the
// /api/chat route with a 503.
func NewServer(cfg config.Config, userStore store.Store, tokens *token.Service, limiter *ratelimit.Limiter, chat *rag.Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		store:   userStore,
		tokens:  tokens,
		limiter: limiter,
		chat:    chat,
		logger:  logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)
	r.Post("/auth/logout", s.handleLogout)
	r.With(s.authMiddleware).Get("/auth/me", s.handleGetMe)

	r.With(s.authMiddleware).Post("/api/chat", s.handleChat)

	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Success     bool        `json:"success"`
	User        *model.User `json:"user,omitempty"`
	AccessToken string      `json:"accessToken,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email, password and name are required")
		return
	}
	if !emailPattern.MatchString(req.Email) {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user, err := s.store.Create(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			authAttempts.WithLabelValues("register", "conflict").Inc()
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		s.internalError(w, "register", err)
		return
	}

	access, err := s.issuePair(w, *user)
	if err != nil {
		s.internalError(w, "register", err)
		return
	}

	authAttempts.WithLabelValues("register", "ok").Inc()
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user, AccessToken: access})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	allowed, err := s.limiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		s.logger.Warn("login rate limiter unavailable", "error", err)
	}
	if !allowed {
		authAttempts.WithLabelValues("login", "limited").Inc()
		writeError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	user, err := s.store.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			// Same status and message whether the email exists or not.
			authAttempts.WithLabelValues("login", "denied").Inc()
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.internalError(w, "login", err)
		return
	}

	access, err := s.issuePair(w, *user)
	if err != nil {
		s.internalError(w, "login", err)
		return
	}

	authAttempts.WithLabelValues("login", "ok").Inc()
	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user, AccessToken: access})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	claims, err := s.tokens.VerifyRefresh(cookie.Value)
	if err != nil {
		authAttempts.WithLabelValues("refresh", "denied").Inc()
		writeError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		return
	}

	user, err := s.store.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.internalError(w, "refresh", err)
		return
	}

	// Rotation: a brand-new pair every time; the client discards the old
	// refresh token when the cookie is overwritten.
	access, err := s.issuePair(w, *user)
	if err != nil {
		s.internalError(w, "refresh", err)
		return
	}

	authAttempts.WithLabelValues("refresh", "ok").Inc()
	writeJSON(w, http.StatusOK, authResponse{Success: true, AccessToken: access})
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "missing access token")
		return
	}

	user, err := s.store.FindByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.internalError(w, "me", err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Success: true, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, authResponse{Success: true})
}

type chatRequest struct {
	Messages []rag.Message `json:"messages"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeError(w, http.StatusServiceUnavailable, "chat is not configured")
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}

	flusher, canFlush := w.(http.Flusher)
	wrote := false
	err := s.chat.Answer(r.Context(), req.Messages, func(delta string) error {
		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			wrote = true
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		return nil
	})
	if err != nil {
		s.logger.Error("chat request failed", "error", err)
		if !wrote {
			writeError(w, http.StatusInternalServerError, "chat request failed")
		}
	}
}

// issuePair mints a fresh access/refresh pair, sets the refresh cookie and
// returns the access token. The refresh token never appears in a body.
func (s *Server) issuePair(w http.ResponseWriter, user model.User) (string, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return "", err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return "", err
	}
	s.setRefreshCookie(w, refresh)
	return access, nil
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.cfg.RefreshTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.Production(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r.Header.Get("Authorization"))
		if tok == "" {
			writeError(w, http.StatusUnauthorized, "missing access token")
			return
		}

		claims, err := s.tokens.VerifyAccess(tok)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type claimsKey struct{}

func claimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey{}).(*token.Claims)
	return claims
}

func (s *Server) internalError(w http.ResponseWriter, endpoint string, err error) {
	s.logger.Error("unexpected error", "endpoint", endpoint, "error", err)
	authAttempts.WithLabelValues(endpoint, "error").Inc()
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, out interface{}) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
