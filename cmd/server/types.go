package main

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault"
)

// MaxSamplesPerRequest bounds a single POST /acceleration batch.
const MaxSamplesPerRequest = 1000

// UploadVideoRequest is the request body for POST /upload-video.
// Field presence is checked by the upload pipeline so that failures are
// reported in its fixed order.
type UploadVideoRequest struct {
	VideoData string `json:"video_data"`
	Username  string `json:"username"`
	Label     string `json:"label"`
	MimeType  string `json:"mime_type,omitempty"`
}

func (r *UploadVideoRequest) ToUpload() signvault.UploadRequest {
	return signvault.UploadRequest{
		Username:    r.Username,
		Label:       r.Label,
		MediaBase64: r.VideoData,
		MimeType:    r.MimeType,
	}
}

// UploadVideoResponse is the response for POST /upload-video and
// POST /import-video.
type UploadVideoResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	ID      string `json:"id,omitempty"`
	Label   string `json:"label,omitempty"`
	Count   int64  `json:"count,omitempty"`
}

// SearchSignRequest is the request body for POST /search-sign.
type SearchSignRequest struct {
	Word string `json:"word"`
}

// SearchSignResponse is the response for POST /search-sign.
type SearchSignResponse struct {
	Status    string     `json:"status"`
	VideoData string     `json:"videoData,omitempty"`
	MimeType  string     `json:"mimeType,omitempty"`
	Message   string     `json:"message,omitempty"`
	Code      string     `json:"code,omitempty"`
	ClipID    string     `json:"clipId,omitempty"`
	Label     string     `json:"label,omitempty"`
	Owner     string     `json:"owner,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// UserCountsResponse is the response for GET /user-counts.
type UserCountsResponse struct {
	Status string             `json:"status"`
	Users  []models.UserCount `json:"users"`
}

// LabelsResponse is the response for GET /labels.
type LabelsResponse struct {
	Status string              `json:"status"`
	Labels []models.LabelCount `json:"labels"`
	Count  int                 `json:"count"`
}

// ImportVideoRequest is the request body for POST /import-video.
type ImportVideoRequest struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	Label    string `json:"label"`
}

// Validate checks the fields the downloader needs. Username and label are
// left to the upload pipeline.
func (r *ImportVideoRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// AccelerationRequest is the body for POST /acceleration: either one sample
// ({"x":..,"y":..,"z":..,"timestamp":..}) or a batch ({"samples":[...]}).
// The single-sample fields are pointers so an empty body can be told apart
// from a sample at the origin.
type AccelerationRequest struct {
	Samples   []models.AccelerationSample `json:"samples,omitempty"`
	X         *float64                    `json:"x,omitempty"`
	Y         *float64                    `json:"y,omitempty"`
	Z         *float64                    `json:"z,omitempty"`
	Timestamp *int64                      `json:"timestamp,omitempty"`
}

// Normalize folds a single-sample body into Samples and stamps samples that
// carry no timestamp with now. A body without samples or axis values is left
// empty for Validate to reject.
func (r *AccelerationRequest) Normalize(now time.Time) {
	if len(r.Samples) == 0 && (r.X != nil || r.Y != nil || r.Z != nil) {
		var s models.AccelerationSample
		if r.X != nil {
			s.X = *r.X
		}
		if r.Y != nil {
			s.Y = *r.Y
		}
		if r.Z != nil {
			s.Z = *r.Z
		}
		if r.Timestamp != nil {
			s.Timestamp = *r.Timestamp
		}
		r.Samples = []models.AccelerationSample{s}
	}
	for i := range r.Samples {
		if r.Samples[i].Timestamp == 0 {
			r.Samples[i].Timestamp = now.UnixMilli()
		}
	}
}

func (r *AccelerationRequest) Validate() error {
	if len(r.Samples) == 0 {
		return fmt.Errorf("at least one sample is required")
	}
	if len(r.Samples) > MaxSamplesPerRequest {
		return fmt.Errorf("too many samples: %d (maximum: %d)", len(r.Samples), MaxSamplesPerRequest)
	}
	for i, s := range r.Samples {
		for _, v := range []float64{s.X, s.Y, s.Z} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("sample %d has a non-finite axis value", i)
			}
		}
		if s.Timestamp < 0 {
			return fmt.Errorf("sample %d has a negative timestamp", i)
		}
	}
	return nil
}

// AccelerationResponse is the response for POST /acceleration.
type AccelerationResponse struct {
	Status   string `json:"status"`
	Accepted int    `json:"accepted"`
	Message  string `json:"message,omitempty"`
	Code     string `json:"code,omitempty"`
}

// MetricsResponse provides server health and storage counts.
type MetricsResponse struct {
	Status       string          `json:"status"`
	DatabasePath string          `json:"database_path"`
	Uptime       string          `json:"uptime"`
	Stats        signvault.Stats `json:"stats"`
}

// ErrorResponse is the standard error response format. Status is always
// "error" so clients can treat every response uniformly.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SocketFrame is one message on the acceleration socket.
type SocketFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const (
	EventHistory = "acceleration-history"
	EventUpdate  = "acceleration-update"
)
