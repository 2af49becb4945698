package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/himanishpuri/SignVault/pkg/models"
	"github.com/himanishpuri/SignVault/pkg/signvault"
)

// remoteClient talks to a running server. While a server is up it holds the
// catalog lock, so every command goes through its HTTP API instead.
type remoteClient struct {
	base   string
	client *http.Client
}

func newRemoteClient(server string) *remoteClient {
	return &remoteClient{
		base:   strings.TrimRight(server, "/"),
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// envelope is the union of the server's JSON response fields.
type envelope struct {
	Status    string              `json:"status"`
	Message   string              `json:"message"`
	Code      string              `json:"code"`
	ID        string              `json:"id"`
	Label     string              `json:"label"`
	Count     int64               `json:"count"`
	VideoData string              `json:"videoData"`
	MimeType  string              `json:"mimeType"`
	ClipID    string              `json:"clipId"`
	Owner     string              `json:"owner"`
	CreatedAt time.Time           `json:"createdAt"`
	Users     []models.UserCount  `json:"users"`
	Labels    []models.LabelCount `json:"labels"`
	Stats     signvault.Stats     `json:"stats"`
	DBPath    string              `json:"database_path"`
}

// do sends a request and decodes the JSON envelope. Error statuses that
// still carry an envelope are returned as a decoded envelope, not an error,
// so callers can report the server's message and code.
func (c *remoteClient) do(ctx context.Context, method, path string, in any) (*envelope, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contacting %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("server returned %d with an unreadable body: %w", resp.StatusCode, err)
	}
	return &env, nil
}

func (c *remoteClient) upload(ctx context.Context, req signvault.UploadRequest, size int) (signvault.UploadResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/upload-video", map[string]string{
		"video_data": req.MediaBase64,
		"username":   req.Username,
		"label":      req.Label,
		"mime_type":  req.MimeType,
	})
	if err != nil {
		return signvault.UploadResult{}, err
	}
	return env.uploadResult(int64(size)), nil
}

func (c *remoteClient) importURL(ctx context.Context, url, username, label string) (signvault.UploadResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/import-video", map[string]string{
		"url":      url,
		"username": username,
		"label":    label,
	})
	if err != nil {
		return signvault.UploadResult{}, err
	}
	return env.uploadResult(0), nil
}

func (e *envelope) uploadResult(size int64) signvault.UploadResult {
	return signvault.UploadResult{
		Status: e.Status,
		ID:     e.ID,
		Label:  e.Label,
		Count:  e.Count,
		Size:   size,
		Reason: e.Message,
		Code:   signvault.Kind(e.Code),
	}
}

func (c *remoteClient) find(ctx context.Context, word string) (signvault.LookupResult, error) {
	env, err := c.do(ctx, http.MethodPost, "/search-sign", map[string]string{"word": word})
	if err != nil {
		return signvault.LookupResult{}, err
	}
	status := env.Status
	if signvault.Kind(env.Code) == signvault.KindNotFound {
		status = signvault.StatusNotFound
	}
	return signvault.LookupResult{
		Status:    status,
		VideoData: env.VideoData,
		MimeType:  env.MimeType,
		ClipID:    env.ClipID,
		Label:     env.Label,
		Owner:     env.Owner,
		CreatedAt: env.CreatedAt,
		Reason:    env.Message,
		Code:      signvault.Kind(env.Code),
	}, nil
}

func (c *remoteClient) get(ctx context.Context, path string) (*envelope, error) {
	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if env.Status == signvault.StatusError {
		return nil, fmt.Errorf("server error (%s): %s", env.Code, env.Message)
	}
	return env, nil
}
