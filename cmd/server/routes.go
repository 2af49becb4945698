package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/himanishpuri/SignVault/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRoutes registers all HTTP routes and middleware
func (s *Server) setupRoutes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	// Service info and health
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/health/metrics", s.handleMetrics).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// Clips
	r.HandleFunc("/upload-video", s.handleUploadVideo).Methods(http.MethodPost)
	r.HandleFunc("/import-video", s.handleImportVideo).Methods(http.MethodPost)
	r.HandleFunc("/search-sign", s.handleSearchSign).Methods(http.MethodPost)
	r.HandleFunc("/user-counts", s.handleUserCounts).Methods(http.MethodGet)
	r.HandleFunc("/labels", s.handleLabels).Methods(http.MethodGet)

	// Acceleration stream
	r.HandleFunc("/acceleration", s.handleAcceleration).Methods(http.MethodPost)
	r.HandleFunc("/socket", s.handleSocket).Methods(http.MethodGet)

	r.Use(metricsMiddleware)
	if s.config.Server.LogRequests {
		r.Use(s.loggingMiddleware)
	}

	// CORS wraps the router so preflight requests never reach method matching.
	return corsMiddleware(s.config.Server.AllowedOrigins)(r)
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if allowAll(allowedOrigins) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				allowed = true
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allowAll(origins []string) bool {
	return len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
}

func originAllowed(origins []string, origin string) bool {
	if allowAll(origins) {
		return true
	}
	for _, o := range origins {
		if o == origin {
			return true
		}
	}
	return false
}

// loggingMiddleware logs all HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := newResponseWriter(w)
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		s.log.Infof("%s %s from %s -> %d (%s)", r.Method, r.URL.Path, getClientIP(r),
			wrapped.statusCode, time.Since(start).Round(time.Millisecond))
	})
}

// metricsMiddleware records Prometheus request metrics labelled by route
// template, which keeps label cardinality bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routePath(r)
		if path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		wrapped := newResponseWriter(w)
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
// It passes Hijack through so the socket endpoint can upgrade.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Infof("SignVault server starting on %s", addr)
	s.log.Infof("   Database: %s", s.config.Database.Path)
	s.log.Infof("   Blob store: %s", s.config.Blob.Type)
	s.log.Infof("   CORS Origins: %v", s.config.Server.AllowedOrigins)
	s.log.Infof("Endpoints:")
	s.log.Infof("   POST   /upload-video            - Upload a labelled clip")
	s.log.Infof("   POST   /import-video            - Import a clip from a video URL")
	s.log.Infof("   POST   /search-sign             - Find the latest clip for a word")
	s.log.Infof("   GET    /user-counts             - Upload leaderboard")
	s.log.Infof("   GET    /labels                  - Labels with clip counts")
	s.log.Infof("   POST   /acceleration            - Publish accelerometer samples")
	s.log.Infof("   GET    /socket                  - Live acceleration stream")
	s.log.Infof("   GET    /metrics                 - Prometheus metrics")

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Infof("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	// Sockets are hijacked and not tracked by Shutdown; closing the
	// acceleration channel ends their pumps.
	s.service.Acceleration().Close()
	return srv.Shutdown(shutdownCtx)
}
