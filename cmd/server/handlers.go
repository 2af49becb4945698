package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/SignVault/internal/config"
	"github.com/himanishpuri/SignVault/pkg/logger"
	"github.com/himanishpuri/SignVault/pkg/signvault"
	"github.com/himanishpuri/SignVault/pkg/signvault/broadcast"
	"github.com/himanishpuri/SignVault/pkg/signvault/importer"
)

// Fetcher downloads a clip from a remote URL. *importer.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*importer.Media, error)
}

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service  signvault.Service
	importer Fetcher
	config   *config.Config
	log      *logger.Logger
	started  time.Time
}

// NewServer creates a new server instance
func NewServer(service signvault.Service, fetcher Fetcher, cfg *config.Config) *Server {
	return &Server{
		service:  service,
		importer: fetcher,
		config:   cfg,
		log:      logger.GetLogger().With("http"),
		started:  time.Now(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, code signvault.Kind, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Status:  signvault.StatusError,
		Message: message,
		Code:    string(code),
	})
}

// httpStatus maps an error class to the HTTP status sent alongside the
// JSON envelope.
func httpStatus(kind signvault.Kind) int {
	switch kind {
	case "":
		return http.StatusOK
	case signvault.KindInvalidInput, signvault.KindDecode:
		return http.StatusBadRequest
	case signvault.KindNotFound:
		return http.StatusNotFound
	case signvault.KindStorageFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body of at most limit bytes into dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, http.StatusRequestEntityTooLarge, signvault.KindInvalidInput,
				fmt.Sprintf("request body exceeds %s", humanize.IBytes(uint64(limit))))
		case errors.Is(err, io.EOF):
			s.respondError(w, http.StatusBadRequest, signvault.KindInvalidInput, "request body is empty")
		default:
			s.respondError(w, http.StatusBadRequest, signvault.KindInvalidInput, "Invalid request body")
		}
		return false
	}
	return true
}

// uploadBodyLimit leaves room for base64 expansion and the JSON envelope.
func (s *Server) uploadBodyLimit() int64 {
	return s.config.Upload.MaxClipBytes/3*4 + 1<<20
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"service": "SignVault API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":       "GET /health",
			"metrics":      "GET /api/health/metrics",
			"prometheus":   "GET /metrics",
			"uploadVideo":  "POST /upload-video",
			"importVideo":  "POST /import-video",
			"searchSign":   "POST /search-sign",
			"userCounts":   "GET /user-counts",
			"labels":       "GET /labels",
			"acceleration": "POST /acceleration",
			"socket":       "GET /socket",
		},
	})
}

// handleHealth handles GET /health. It fails with 503 when the catalog
// cannot be reached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		s.log.Errorf("Health check failed: %v", err)
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "unhealthy",
			"message": signvault.ReasonOf(err),
			"time":    time.Now().Format(time.RFC3339),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleMetrics handles GET /api/health/metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	stats, err := s.service.Stats(ctx)
	if err != nil {
		s.log.Errorf("Failed to collect stats: %v", err)
		s.respondError(w, http.StatusServiceUnavailable, signvault.KindOf(err), "Failed to retrieve metrics")
		return
	}

	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.Database.Path,
		Uptime:       time.Since(s.started).Round(time.Second).String(),
		Stats:        stats,
	})
}

// handleUploadVideo handles POST /upload-video
func (s *Server) handleUploadVideo(w http.ResponseWriter, r *http.Request) {
	var req UploadVideoRequest
	if !s.decodeJSON(w, r, s.uploadBodyLimit(), &req) {
		return
	}

	res := s.service.Submit(r.Context(), req.ToUpload())
	s.respondUpload(w, res, "Video uploaded successfully")
}

// handleImportVideo handles POST /import-video
func (s *Server) handleImportVideo(w http.ResponseWriter, r *http.Request) {
	var req ImportVideoRequest
	if !s.decodeJSON(w, r, 64<<10, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, signvault.KindInvalidInput, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	media, err := s.importer.Fetch(ctx, req.URL)
	if err != nil {
		if errors.Is(err, importer.ErrInvalidURL) || errors.Is(err, importer.ErrTooLarge) {
			s.respondError(w, http.StatusBadRequest, signvault.KindInvalidInput, err.Error())
			return
		}
		s.log.Errorf("Import of %s failed: %v", req.URL, err)
		s.respondError(w, http.StatusBadGateway, signvault.KindInternal, "Failed to download video")
		return
	}

	res := s.service.SubmitMedia(r.Context(), req.Username, req.Label, media.Data, media.MimeType)
	s.respondUpload(w, res, fmt.Sprintf("Video imported from %s", media.Source))
}

func (s *Server) respondUpload(w http.ResponseWriter, res signvault.UploadResult, message string) {
	if !res.OK() {
		s.respondJSON(w, httpStatus(res.Code), UploadVideoResponse{
			Status:  signvault.StatusError,
			Message: res.Reason,
			Code:    string(res.Code),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, UploadVideoResponse{
		Status:  signvault.StatusSuccess,
		Message: message,
		ID:      res.ID,
		Label:   res.Label,
		Count:   res.Count,
	})
}

// handleSearchSign handles POST /search-sign
func (s *Server) handleSearchSign(w http.ResponseWriter, r *http.Request) {
	var req SearchSignRequest
	if !s.decodeJSON(w, r, 64<<10, &req) {
		return
	}

	res := s.service.Find(r.Context(), req.Word)
	if !res.Found() {
		// not_found travels as status "error" so the client shows the message.
		s.respondJSON(w, httpStatus(res.Code), SearchSignResponse{
			Status:  signvault.StatusError,
			Message: res.Reason,
			Code:    string(res.Code),
		})
		return
	}

	created := res.CreatedAt
	s.respondJSON(w, http.StatusOK, SearchSignResponse{
		Status:    signvault.StatusSuccess,
		VideoData: res.VideoData,
		MimeType:  res.MimeType,
		ClipID:    res.ClipID,
		Label:     res.Label,
		Owner:     res.Owner,
		CreatedAt: &created,
	})
}

// handleUserCounts handles GET /user-counts
func (s *Server) handleUserCounts(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, UserCountsResponse{
		Status: signvault.StatusSuccess,
		Users:  s.service.Leaderboard(),
	})
}

// handleLabels handles GET /labels
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	labels := s.service.Labels()
	s.respondJSON(w, http.StatusOK, LabelsResponse{
		Status: signvault.StatusSuccess,
		Labels: labels,
		Count:  len(labels),
	})
}

// handleAcceleration handles POST /acceleration
func (s *Server) handleAcceleration(w http.ResponseWriter, r *http.Request) {
	var req AccelerationRequest
	if !s.decodeJSON(w, r, 1<<20, &req) {
		return
	}
	req.Normalize(time.Now())
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, signvault.KindInvalidInput, err.Error())
		return
	}

	ch := s.service.Acceleration()
	accepted := 0
	for _, sample := range req.Samples {
		if err := ch.Publish(sample); err != nil {
			status, msg := http.StatusConflict, err.Error()
			if errors.Is(err, broadcast.ErrChannelClosed) {
				status = http.StatusServiceUnavailable
			}
			s.respondJSON(w, status, AccelerationResponse{
				Status:   signvault.StatusError,
				Accepted: accepted,
				Message:  msg,
				Code:     string(signvault.KindInvalidInput),
			})
			return
		}
		accepted++
	}

	s.respondJSON(w, http.StatusOK, AccelerationResponse{
		Status:   signvault.StatusSuccess,
		Accepted: accepted,
	})
}

// handleMethodNotAllowed keeps 405s in the JSON envelope
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusMethodNotAllowed, signvault.KindInvalidInput, "Method not allowed")
}

// handleNotFound keeps unknown routes in the JSON envelope
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, http.StatusNotFound, signvault.KindNotFound, fmt.Sprintf("No route for %s", r.URL.Path))
}
