package signvault

import "time"

const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// UploadRequest mirrors the upload wire payload. MediaBase64 may carry a
// data URL prefix ("data:video/mp4;base64,").
type UploadRequest struct {
	Username    string
	Label       string
	MediaBase64 string
	MimeType    string
}

type UploadResult struct {
	Status string
	ID     string
	Label  string
	Count  int64 // uploader's count after this submission
	Size   int64
	Reason string
	Code   Kind
	Err    error
}

func (r UploadResult) OK() bool { return r.Status == StatusSuccess }

type LookupResult struct {
	Status    string // StatusSuccess, StatusNotFound or StatusError
	VideoData string // base64 payload
	MimeType  string
	ClipID    string
	Label     string
	Owner     string
	CreatedAt time.Time
	Reason    string
	Code      Kind
	Err       error
}

func (r LookupResult) Found() bool { return r.Status == StatusSuccess }

// Stats summarises the service state for health output.
type Stats struct {
	Clips       int64  `json:"clips"`
	Labels      int    `json:"labels"`
	Users       int    `json:"users"`
	Consumers   int    `json:"consumers"`
	Published   uint64 `json:"samples_published"`
	BlobBackend string `json:"blob_backend"`
}
