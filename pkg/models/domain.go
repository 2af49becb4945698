package models

import "time"

// Clip is one stored video submission tied to a user and a word label.
// Clips are immutable once stored.
type Clip struct {
	ID        string    // Opaque clip ID (UUID)
	Seq       uint64    // Submission order assigned by the catalog
	Data      []byte    // Raw media payload (empty when only metadata was loaded)
	MimeType  string    // Media type, e.g. video/mp4
	Owner     string    // Trimmed username of the uploader
	Label     string    // Normalized word label
	RawLabel  string    // Label as submitted
	SizeBytes int64     // Payload size in bytes
	Checksum  string    // Hex SHA-256 of Data
	CreatedAt time.Time // Time the clip was stored
}

// UserCount is one leaderboard row.
type UserCount struct {
	Username string `json:"username"`
	Count    int64  `json:"count"`
}

// LabelCount reports how many clips are recorded under a label.
type LabelCount struct {
	Label string `json:"label"`
	Clips int    `json:"clips"`
}
