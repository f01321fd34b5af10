package domain

import (
	"time"

	"github.com/google/uuid"
)

// FetchLogType is the tier a fetch log entry refers to
type FetchLogType string

const (
	FetchLogTypeAPI      FetchLogType = "API"
	FetchLogTypeDatabase FetchLogType = "DATABASE"
)

// FetchLog records one market-data acquisition attempt
type FetchLog struct {
	ID           uuid.UUID
	Type         FetchLogType
	Source       string
	Success      bool
	ErrorMessage string
	CreatedAt    time.Time
}
