package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mayank-dotcom/career-bot/internal/ratelimit"
	"github.com/mayank-dotcom/career-bot/internal/util"
	"github.com/mayank-dotcom/career-bot/services/api/internal/app"
	"github.com/mayank-dotcom/career-bot/services/api/internal/security"
)

const (
	defaultMaxUploadBytes = 10 << 20
	maxRPCBodyBytes       = 1 << 20
	rateLimitPrefix       = "careerbot:api:ratelimit"
)

// RateLimits are requests per minute per client IP. Zero disables a limiter.
type RateLimits struct {
	SignUp      int
	SignIn      int
	SendMessage int
	ParsePDF    int
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// Redis backs rate limiting; nil disables it.
	Redis          *redis.Client
	Alerter        *security.AuditAlerter
	RateLimits     RateLimits
	RequireAuth    bool
	MaxUploadBytes int64
	CORSOrigins    []string
	TrustedProxies []string
}

// Server exposes the RPC procedures and the PDF upload endpoint.
type Server struct {
	app            *app.App
	mux            *http.ServeMux
	procedures     map[string]binding
	limiters       map[string]*ratelimit.FixedWindowLimiter
	alerter        *security.AuditAlerter
	requireAuth    bool
	maxUploadBytes int64
	corsOrigins    []string
	ips            *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("server: app is required")
	}
	ips, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("server: trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		mux:            http.NewServeMux(),
		limiters:       make(map[string]*ratelimit.FixedWindowLimiter),
		alerter:        cfg.Alerter,
		requireAuth:    cfg.RequireAuth,
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
		corsOrigins:    cfg.CORSOrigins,
		ips:            ips,
	}
	if cfg.Redis != nil {
		for name, limit := range map[string]int{
			limitSignUp:      cfg.RateLimits.SignUp,
			limitSignIn:      cfg.RateLimits.SignIn,
			limitSendMessage: cfg.RateLimits.SendMessage,
			limitParsePDF:    cfg.RateLimits.ParsePDF,
		} {
			if limit <= 0 {
				continue
			}
			limiter, err := ratelimit.NewFixedWindowLimiter(cfg.Redis, rateLimitPrefix, name, limit, time.Minute)
			if err != nil {
				return nil, fmt.Errorf("init %s limiter: %w", name, err)
			}
			s.limiters[name] = limiter
		}
	}
	s.procedures = s.bindings()
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.Chain(s.mux,
		util.WithRequestID,
		func(next http.Handler) http.Handler { return util.WithRequestLog(s.ips, next) },
		util.WithSecurityHeaders,
		util.CORS(s.corsOrigins),
	)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/rpc", s.handleRegistry)
	s.mux.HandleFunc("/rpc/", s.handleRPC)
	s.mux.HandleFunc("/api/parse-pdf", s.handleParsePDF)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return defaultMaxUploadBytes
	}
	return value
}

func statusForKind(kind app.Kind) int {
	switch kind {
	case app.KindValidation:
		return http.StatusBadRequest
	case app.KindUnauthorized:
		return http.StatusUnauthorized
	case app.KindForbidden:
		return http.StatusForbidden
	case app.KindNotFound:
		return http.StatusNotFound
	case app.KindConflict:
		return http.StatusConflict
	case app.KindRateLimited:
		return http.StatusTooManyRequests
	case app.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.ips)
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logger := util.LoggerFromContext(r.Context())
	ip := s.clientIP(r)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
	result, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Error("security alert counter failed", "event", event, "err", err)
		return
	}
	if result.Triggered {
		logger.Error("security_alert",
			"rule", result.Rule,
			"event", event,
			"outcome", outcome,
			"ip", ip,
			"count", result.Count,
			"threshold", result.Threshold,
			"window", result.Window.String(),
		)
	}
}

// allowRate consumes one unit of the named limiter. Missing limiters allow
// everything; limiter failures reject.
func (s *Server) allowRate(ctx context.Context, r *http.Request, name string) (time.Duration, bool) {
	limiter, ok := s.limiters[name]
	if !ok {
		return 0, true
	}
	decision, err := limiter.Allow(ctx, s.clientIP(r))
	if err != nil {
		util.LoggerFromContext(ctx).Error("rate limiter unavailable", "limiter", name, "err", err)
		return decision.RetryAfter, false
	}
	return decision.RetryAfter, decision.Allowed
}

func setRetryAfter(w http.ResponseWriter, wait time.Duration) {
	secs := int(wait.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}
