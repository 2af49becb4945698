package models

// AccelerationSample is one timestamped 3-axis accelerometer reading.
// Timestamp is in milliseconds since the Unix epoch.
type AccelerationSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp int64   `json:"timestamp"`
}
