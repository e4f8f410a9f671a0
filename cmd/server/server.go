// cmd/server/server.go
package main

import (
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/valpere/FBScrapexter/internal/errors"
	"github.com/valpere/FBScrapexter/internal/monitoring"
	"github.com/valpere/FBScrapexter/internal/utils"
	"github.com/valpere/FBScrapexter/pkg/api"
)

// serverOptions configures the HTTP API
type serverOptions struct {
	APIKey    string
	RateLimit float64
	RateBurst int
	Version   string
}

type server struct {
	client  *api.ScraperClient
	health  *monitoring.HealthManager
	options serverOptions
	logger  utils.Logger
}

func newServer(client *api.ScraperClient, options serverOptions) *server {
	health := monitoring.NewHealthManager(options.Version)
	if session := client.Session(); session != nil {
		health.RegisterCheck(monitoring.CookieHealthCheck(session.ValidateCookies))
	}
	return &server{
		client:  client,
		health:  health,
		options: options,
		logger:  client.Logger().WithField("component", "server"),
	}
}

func (s *server) routes() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health.HealthHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", s.client.Metrics().MetricsHandler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.loggingMiddleware, s.authMiddleware, s.rateLimitMiddleware())
	v1.HandleFunc("/posts/{account}", s.postsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/groups/{group}/posts", s.groupPostsHandler).Methods(http.MethodGet)
	v1.HandleFunc("/profiles/{account}", s.profileHandler).Methods(http.MethodGet)

	return r
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("Handled request")
	})
}

func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.options.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") || strings.TrimPrefix(authHeader, "Bearer ") != s.options.APIKey {
			writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{
				Error:  "unauthorized",
				Kind:   "unauthorized",
				Status: http.StatusUnauthorized,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) rateLimitMiddleware() mux.MiddlewareFunc {
	limiter := utils.NewRateLimiter(s.options.RateLimit, s.options.RateBurst)
	if limiter.Unlimited() {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeJSON(w, http.StatusTooManyRequests, api.ErrorResponse{
					Error:  "rate limit exceeded",
					Kind:   "rate_limited",
					Status: http.StatusTooManyRequests,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// listingOptions reads the pages query parameter over the configured options.
func (s *server) listingOptions(r *http.Request) (api.Options, error) {
	opts := s.client.Config().Scrape.ScraperOptions()
	if raw := r.URL.Query().Get("pages"); raw != "" {
		pages, err := strconv.Atoi(raw)
		if err != nil || pages == 0 {
			return opts, fmt.Errorf("invalid pages value %q", raw)
		}
		opts.PageLimit = pages
	}
	return opts, nil
}

func (s *server) postsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := s.listingOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err, http.StatusBadRequest))
		return
	}
	s.streamPosts(w, s.client.Posts(r.Context(), mux.Vars(r)["account"], opts))
}

func (s *server) groupPostsHandler(w http.ResponseWriter, r *http.Request) {
	opts, err := s.listingOptions(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err, http.StatusBadRequest))
		return
	}
	s.streamPosts(w, s.client.GroupPosts(r.Context(), mux.Vars(r)["group"], opts))
}

// streamPosts writes one JSON post per line. An error before the first post
// is answered with its HTTP status; a later one ends the stream with an
// error line.
func (s *server) streamPosts(w http.ResponseWriter, seq iter.Seq2[api.Post, error]) {
	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	started := false
	for post, err := range seq {
		if err != nil {
			status := errors.HTTPStatus(err)
			s.logger.Warnf("Listing failed: %v", err)
			if !started {
				writeJSON(w, status, errorResponse(err, status))
				return
			}
			enc.Encode(errorResponse(err, status))
			return
		}
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := enc.Encode(post); err != nil {
			s.logger.Warnf("Could not write post: %v", err)
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	if !started {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
	}
}

func (s *server) profileHandler(w http.ResponseWriter, r *http.Request) {
	record, err := s.client.Profile(r.Context(), mux.Vars(r)["account"], s.client.ProfileOptions())
	if err != nil {
		status := errors.HTTPStatus(err)
		writeJSON(w, status, errorResponse(err, status))
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func errorResponse(err error, status int) api.ErrorResponse {
	resp := api.ErrorResponse{
		Error:  err.Error(),
		Kind:   errors.KindOf(err).String(),
		Status: status,
	}
	var e *errors.Error
	if errors.As(err, &e) {
		resp.URL = e.URL
		resp.Message = e.Message
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
