package signvault

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/himanishpuri/SignVault/internal/metrics"
	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault/index"
)

// Submit validates an upload, then stores the clip, records its label and
// bumps the uploader's count. The result is returned only after all three
// effects are visible; on failure none of them has happened.
func (s *service) Submit(ctx context.Context, req UploadRequest) UploadResult {
	start := time.Now()

	username, label, err := validateIdentity(req.Username, req.Label)
	if err != nil {
		return s.uploadFailed(err)
	}

	data, embeddedMime, err := decodeMedia(req.MediaBase64, s.config.MaxClipBytes)
	if err != nil {
		return s.uploadFailed(err)
	}

	mime := strings.TrimSpace(req.MimeType)
	if mime == "" {
		mime = embeddedMime
	}
	return s.store(ctx, start, username, req.Label, label, data, mime)
}

func (s *service) SubmitMedia(ctx context.Context, username, label string, data []byte, mimeType string) UploadResult {
	start := time.Now()

	user, normalized, err := validateIdentity(username, label)
	if err != nil {
		return s.uploadFailed(err)
	}
	if len(data) == 0 {
		return s.uploadFailed(newError(ErrDecode, "media payload is empty", nil))
	}
	if err := checkSize(int64(len(data)), s.config.MaxClipBytes); err != nil {
		return s.uploadFailed(err)
	}
	return s.store(ctx, start, user, label, normalized, data, strings.TrimSpace(mimeType))
}

func (s *service) store(ctx context.Context, start time.Time, username, rawLabel, label string, data []byte, mime string) UploadResult {
	if mime == "" {
		mime = s.config.DefaultMimeType
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.UploadTimeout)
	defer cancel()

	clip := &models.Clip{
		Data:     data,
		MimeType: mime,
		Owner:    username,
		Label:    label,
		RawLabel: rawLabel,
	}
	if err := s.content.Put(ctx, clip); err != nil {
		s.log.Errorf("upload from %s for %q failed: %v", username, label, err)
		return s.uploadFailed(err)
	}

	s.index.Record(clip.Label, clip.ID, clip.Seq)
	count := s.counters.Increment(username)

	metrics.UploadsTotal.WithLabelValues(StatusSuccess).Inc()
	metrics.UploadBytes.Observe(float64(clip.SizeBytes))
	metrics.UploadDuration.Observe(time.Since(start).Seconds())
	s.log.Infof("stored clip %s label=%q owner=%s size=%s count=%d",
		clip.ID, clip.Label, username, humanize.IBytes(uint64(clip.SizeBytes)), count)

	return UploadResult{
		Status: StatusSuccess,
		ID:     clip.ID,
		Label:  clip.Label,
		Count:  count,
		Size:   clip.SizeBytes,
	}
}

func (s *service) uploadFailed(err error) UploadResult {
	kind := KindOf(err)
	metrics.UploadsTotal.WithLabelValues(string(kind)).Inc()
	if kind != KindStorageFailure {
		s.log.Debugf("rejected upload: %v", err)
	}
	return UploadResult{
		Status: StatusError,
		Reason: ReasonOf(err),
		Code:   kind,
		Err:    err,
	}
}

// validateIdentity returns the trimmed username and normalized label, or an
// ErrInvalidInput naming the first missing field.
func validateIdentity(username, label string) (string, string, error) {
	user := strings.TrimSpace(username)
	if user == "" {
		return "", "", newError(ErrInvalidInput, "username required", nil)
	}
	normalized := index.Normalize(label)
	if normalized == "" {
		return "", "", newError(ErrInvalidInput, "label required", nil)
	}
	return user, normalized, nil
}

// decodeMedia decodes standard base64, padded or not, optionally behind a
// data URL header. It returns the mime type named in that header, if any.
func decodeMedia(encoded string, maxBytes int64) ([]byte, string, error) {
	payload := strings.TrimSpace(encoded)
	var mime string

	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, "", newError(ErrDecode, "malformed data URL", nil)
		}
		header := payload[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", newError(ErrDecode, "data URL is not base64 encoded", nil)
		}
		mime = strings.TrimSuffix(header, ";base64")
		payload = payload[comma+1:]
	}

	if payload == "" {
		return nil, "", newError(ErrDecode, "media payload is empty", nil)
	}
	if maxBytes > 0 && int64(base64.RawStdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, "", newError(ErrInvalidInput, fmt.Sprintf("clip exceeds %s limit", humanize.IBytes(uint64(maxBytes))), nil)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		var rawErr error
		data, rawErr = base64.RawStdEncoding.DecodeString(payload)
		if rawErr != nil {
			return nil, "", newError(ErrDecode, "media is not valid base64", err)
		}
	}
	if len(data) == 0 {
		return nil, "", newError(ErrDecode, "media payload is empty", nil)
	}
	if err := checkSize(int64(len(data)), maxBytes); err != nil {
		return nil, "", err
	}
	return data, mime, nil
}

func checkSize(n, maxBytes int64) error {
	if maxBytes > 0 && n > maxBytes {
		return newError(ErrInvalidInput, fmt.Sprintf("clip exceeds %s limit", humanize.IBytes(uint64(maxBytes))), nil)
	}
	return nil
}
