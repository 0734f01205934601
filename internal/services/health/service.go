package health

import (
	"context"
	"database/sql"
	"time"
)

// Service encapsulates health-related checks.
type Service struct {
	db *sql.DB
}

// NewService constructs a new health service. db may be nil when the
// process runs without a database.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Status reports overall health plus per-dependency state.
func (s *Service) Status(ctx context.Context) map[string]any {
	status := map[string]any{"ok": true}
	if s.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(pingCtx); err != nil {
			status["ok"] = false
			status["database"] = "down"
		} else {
			status["database"] = "up"
		}
	}
	return status
}
