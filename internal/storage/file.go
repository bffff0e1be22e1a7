package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"timerd/internal/timer"
	logx "timerd/pkg/logx"
)

// fileStore keeps the snapshot in a single JSON file.
//
// Writes go through a tmp file followed by rename, so a crash mid-save leaves
// the previous snapshot intact.
type fileStore struct {
	log  logx.Logger
	path string

	mu     sync.Mutex
	closed bool
}

// snapshotFile is the on-disk layout. Timer records stay raw during decode so
// one malformed record can be dropped without failing the whole snapshot.
type snapshotFile struct {
	Version int                        `json:"version"`
	Timers  map[string]json.RawMessage `json:"timers"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: cfg.Path}, nil
}

func (s *fileStore) Load(ctx context.Context) (map[string]timer.Timer, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("file store closed")
	}

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap snapshotFile
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return decodeRecords(snap.Timers, s.log), nil
}

func (s *fileStore) Save(ctx context.Context, timers map[string]timer.Timer) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("file store closed")
	}

	raw := make(map[string]json.RawMessage, len(timers))
	for name, t := range timers {
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		raw[name] = b
	}
	b, err := json.MarshalIndent(snapshotFile{Version: SnapshotVersion, Timers: raw}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// decodeRecords unmarshals timer records individually, dropping the broken
// ones so siblings survive.
func decodeRecords(raw map[string]json.RawMessage, log logx.Logger) map[string]timer.Timer {
	out := make(map[string]timer.Timer, len(raw))
	for name, b := range raw {
		var t timer.Timer
		if err := json.Unmarshal(b, &t); err != nil {
			log.Warn("dropping undecodable timer record", logx.String("timer", name), logx.Err(err))
			continue
		}
		out[name] = t
	}
	return out
}
