package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// AnalysisRecord is one completed analysis, kept for history and the MCP
// recent_meals tool.
type AnalysisRecord struct {
	ID         string
	CreatedAt  time.Time
	UserKey    string
	Operation  string
	ProviderID string
	DurationMs int64
	Result     string // JSON payload as returned to the caller
}
