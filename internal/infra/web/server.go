package web

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"moderation-service/internal/infra/api"
	"moderation-service/internal/infra/logging"
	"moderation-service/internal/infra/metrics"
	"moderation-service/internal/infra/redis"
	"moderation-service/internal/usecase"
)

const (
	HeaderInternalKey = "X-Internal-Key"
	HeaderUserID      = "X-User-ID"
)

type ctxKey int

const adminIDKey ctxKey = iota

// Limiter is satisfied by redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Deps struct {
	Submissions   usecase.SubmissionUseCase
	Verdicts      usecase.VerdictUseCase
	Admin         usecase.AdminUseCase
	Notifications usecase.NotificationUseCase
	Auth          *AuthManager
	// Limiter is optional; nil disables per-user submission limits.
	Limiter Limiter
}

type Options struct {
	InternalKey    string
	AdminAPIKey    string
	RequestTimeout time.Duration
	RatePerMinute  int
}

type Server struct {
	deps Deps
	opts Options
	log  *zerolog.Logger
}

func NewServer(deps Deps, opts Options, logger *zerolog.Logger) *Server {
	l := logger.With().Str("component", "http").Logger()
	return &Server{deps: deps, opts: opts, log: &l}
}

// Handler builds the routing tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(
		api.TraceID(),
		api.RequestLog(s.log),
		api.Recover(s.log),
		api.Timeout(s.opts.RequestTimeout),
	)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/internal", func(r chi.Router) {
		r.Use(s.requireInternalKey)
		r.Patch("/components/{id}/verdict", s.handleVerdict)
		r.Patch("/media/{id}/tag", s.handleTag)
		r.Patch("/places/{id}/summary", s.handleSummaryResult)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)
		r.With(s.rateLimit("posts")).Post("/posts", s.handleSubmitPost)
		r.With(s.rateLimit("media")).Post("/media", s.handleSubmitMedia)
		r.Get("/content/{id}", s.handleGetContent)
		r.Delete("/content/{id}", s.handleDeleteContent)
		r.With(s.rateLimit("summary")).Post("/places/{id}/summary", s.handleRequestSummary)
		r.Get("/places/{id}/summary", s.handleLatestSummary)
		r.Get("/notifications", s.handleListNotifications)
		r.Post("/notifications/{id}/read", s.handleMarkRead)
	})

	r.Get("/jobs/{kind}/{id}", s.handleGetJob)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/review", s.handleReviewQueue)
			r.Post("/content/{id}/override", s.handleOverride)
			r.Get("/content/{id}/history", s.handleHistory)
		})
	})

	return r
}

func keyMatches(got, want string) bool {
	return want != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func (s *Server) requireInternalKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !keyMatches(r.Header.Get(HeaderInternalKey), s.opts.InternalKey) {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser trusts the user id set by the upstream auth collaborator.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.WithUserID(r.Context(), uid)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Auth == nil {
			writeMessage(w, http.StatusForbidden, "forbidden")
			return
		}
		claims, err := s.deps.Auth.ParseFromRequest(r)
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		ctx := context.WithValue(r.Context(), adminIDKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit applies the per-user submission budget. Limiter errors fail open.
func (s *Server) rateLimit(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.deps.Limiter == nil || s.opts.RatePerMinute <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			key := redis.SubmissionKey(userID(r), route)
			ok, err := s.deps.Limiter.Allow(r.Context(), key, s.opts.RatePerMinute, time.Minute)
			if err != nil {
				logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
			} else if !ok {
				writeMessage(w, http.StatusTooManyRequests, "rate limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderUserID))
}

func adminID(r *http.Request) string {
	id, _ := r.Context().Value(adminIDKey).(string)
	return id
}
