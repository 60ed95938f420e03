// Package store is the engine's persistent lead store: one SQLite engine whose
// whole state is mirrored into a durable blob slot after every mutation.
package store

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"leadgenius-engine/internal/metrics"
)

var (
	// ErrInvalidFormat means a blob is not a SQLite database image holding a
	// leads table of the expected layout.
	ErrInvalidFormat = errors.New("invalid database format")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("store is closed")
	// ErrPersistFailed wraps a slot write failure. The in-memory change it
	// followed is still applied.
	ErrPersistFailed = errors.New("persist failed")
)

// DefaultSlotKey is the well-known name the snapshot is persisted under.
const DefaultSlotKey = "sqlite_db"

var sqliteHeader = []byte("SQLite format 3\x00")

type Options struct {
	// WorkDir holds the live engine file. It is scratch space; the slot is authoritative.
	WorkDir string
	Slot    Slot
	SlotKey string
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Store owns the single engine instance. All access goes through Read and
// Mutate, which serialize on mu; Mutate persists before it returns.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	workDir string
	slot    Slot
	key     string
	log     *zap.Logger
	metrics *metrics.Metrics
}

// Open initializes the store: it loads the persisted snapshot if the slot has
// one, otherwise it creates an empty schema. A snapshot that fails to load is
// returned as an error and nothing is reset.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Slot == nil {
		return nil, errors.New("store: slot is required")
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.SlotKey == "" {
		opts.SlotKey = DefaultSlotKey
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(opts.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: work dir: %w", err)
	}

	s := &Store{
		workDir: opts.WorkDir,
		slot:    opts.Slot,
		key:     opts.SlotKey,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}

	blob, err := s.slot.Load(ctx, s.key)
	switch {
	case errors.Is(err, ErrSlotEmpty):
		db, path, err := s.newEngine(ctx)
		if err != nil {
			return nil, err
		}
		s.db, s.path = db, path
		s.log.Info("store initialized empty", zap.String("slot_key", s.key))
	case err != nil:
		return nil, fmt.Errorf("store: load slot %q: %w", s.key, err)
	default:
		db, path, err := s.loadEngine(ctx, blob)
		if err != nil {
			return nil, fmt.Errorf("store: restore slot %q: %w", s.key, err)
		}
		s.db, s.path = db, path
		s.log.Info("store restored", zap.String("slot_key", s.key), zap.Int("bytes", len(blob)))
	}
	return s, nil
}

// Close releases the engine and removes its scratch file. The slot is untouched.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	_ = os.Remove(s.path)
	s.db = nil
	return err
}

// Read runs fn against the engine under a shared lock.
func (s *Store) Read(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	return fn(ctx, s.db)
}

// Mutate runs fn under the exclusive lock and, if fn succeeds, persists the
// new state before returning. If the persist fails the in-memory change stays
// applied and the persist error is returned.
func (s *Store) Mutate(ctx context.Context, fn func(ctx context.Context, db *sql.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	if err := fn(ctx, s.db); err != nil {
		return err
	}
	return s.persistLocked(ctx)
}

// Persist writes the current state to the slot, replacing what was there.
func (s *Store) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	return s.persistLocked(ctx)
}

// ExportSnapshot returns the full database image. It does not touch the slot.
func (s *Store) ExportSnapshot(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	return s.snapshotLocked(ctx)
}

// ImportSnapshot replaces the whole engine with one built from blob and
// persists it. The blob is fully validated before anything is swapped, so a
// bad blob leaves both memory and the slot as they were.
func (s *Store) ImportSnapshot(ctx context.Context, blob []byte) error {
	db, path, err := s.loadEngine(ctx, blob)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		_ = db.Close()
		_ = os.Remove(path)
		return ErrClosed
	}

	old, oldPath := s.db, s.path
	s.db, s.path = db, path
	if err := old.Close(); err != nil {
		s.log.Warn("close replaced engine", zap.Error(err))
	}
	_ = os.Remove(oldPath)

	s.log.Info("snapshot imported", zap.Int("bytes", len(blob)))
	return s.persistLocked(ctx)
}

func (s *Store) persistLocked(ctx context.Context) error {
	data, err := s.snapshotLocked(ctx)
	if err == nil {
		err = s.slot.Save(ctx, s.key, data)
	}
	s.metrics.ObservePersist(len(data), err)
	if err != nil {
		s.log.Error("persist failed", zap.String("slot_key", s.key), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return nil
}

func (s *Store) snapshotLocked(ctx context.Context) ([]byte, error) {
	tmp, err := s.scratchFile("snapshot-*.db")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	// VACUUM INTO wants the target missing or empty; the scratch file is empty.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`VACUUM INTO '%s';`, strings.ReplaceAll(tmp, "'", "''"))); err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return os.ReadFile(tmp)
}

func (s *Store) newEngine(ctx context.Context) (*sql.DB, string, error) {
	path, err := s.scratchFile("engine-*.db")
	if err != nil {
		return nil, "", err
	}
	db, err := openEngine(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, "", fmt.Errorf("open engine: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = os.Remove(path)
		return nil, "", fmt.Errorf("migrate: %w", err)
	}
	return db, path, nil
}

// loadEngine materializes blob into a fresh engine file and checks that it is
// a readable database whose leads table has every lead column once migrated. The caller owns the result.
func (s *Store) loadEngine(ctx context.Context, blob []byte) (_ *sql.DB, _ string, err error) {
	if len(blob) < 100 || !bytes.HasPrefix(blob, sqliteHeader) {
		return nil, "", fmt.Errorf("%w: missing SQLite header", ErrInvalidFormat)
	}

	path, err := s.scratchFile("engine-*.db")
	if err != nil {
		return nil, "", err
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		_ = os.Remove(path)
		return nil, "", err
	}

	db, err := openEngine(path)
	if err != nil {
		_ = os.Remove(path)
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	defer func() {
		if err != nil {
			_ = db.Close()
			_ = os.Remove(path)
		}
	}()

	var check string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&check); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if check != "ok" {
		return nil, "", fmt.Errorf("%w: integrity check: %s", ErrInvalidFormat, check)
	}
	ok, err := tableExists(ctx, db, "leads")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if !ok {
		return nil, "", fmt.Errorf("%w: no leads table", ErrInvalidFormat)
	}
	if err := Migrate(ctx, db); err != nil {
		return nil, "", fmt.Errorf("%w: migrate: %v", ErrInvalidFormat, err)
	}
	if missing := missingColumns(ctx, db); len(missing) > 0 {
		return nil, "", fmt.Errorf("%w: leads table lacks %s", ErrInvalidFormat, strings.Join(missing, ", "))
	}
	return db, path, nil
}

func (s *Store) scratchFile(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", fmt.Errorf("scratch file: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return filepath.Clean(name), nil
}
