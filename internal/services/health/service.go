package health

import (
	"context"
	"database/sql"
	"time"

	"docinsight-backend/internal/shared/storage/db"
)

const (
	DatabaseUp     = "up"
	DatabaseDown   = "down"
	DatabaseMemory = "memory"

	defaultPingTimeout = 2 * time.Second
)

// Status is the body served at /health.
type Status struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// Service encapsulates health-related checks.
type Service struct {
	DB          *sql.DB
	PingTimeout time.Duration
}

// NewService constructs a health service. A nil database means the process
// runs on in-memory repositories.
func NewService(database *sql.DB) *Service {
	return &Service{DB: database, PingTimeout: defaultPingTimeout}
}

// Status pings the database when one is configured.
func (s *Service) Status(ctx context.Context) Status {
	if s == nil || s.DB == nil {
		return Status{OK: true, Database: DatabaseMemory}
	}
	timeout := s.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	if err := db.Ping(ctx, s.DB, timeout); err != nil {
		return Status{OK: false, Database: DatabaseDown}
	}
	return Status{OK: true, Database: DatabaseUp}
}
