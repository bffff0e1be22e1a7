package storage

import (
	"context"
	"time"

	"timerd/internal/timer"
)

// SnapshotVersion is the current persisted layout version.
const SnapshotVersion = 1

// Config configures storage.
//
// Driver values:
//   - "file" (default): JSON snapshot file
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the snapshot persistence API used by the manager.
//
// Load returns (nil, nil) when no prior snapshot exists; that is not an
// error, it means "no timers yet". Individual records that fail to decode
// are dropped with a warning so one corrupt entry never loses the rest.
type Store interface {
	Load(ctx context.Context) (map[string]timer.Timer, error)
	Save(ctx context.Context, timers map[string]timer.Timer) error
	Close() error
}
