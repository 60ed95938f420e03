// Package backup writes periodic snapshot copies next to the live slot and
// prunes old ones.
package backup

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"go.uber.org/zap"
)

const (
	ExportMIME = "application/x-sqlite3"

	backupPrefix = "leadgenius_backup_"
	backupExt    = ".sqlite"
)

// ExportFilename is the name offered for a user-facing snapshot download.
func ExportFilename(t time.Time) string {
	return "leadgenius_export_" + t.Format("2006-01-02") + ".sqlite"
}

type Exporter interface {
	ExportSnapshot(ctx context.Context) ([]byte, error)
}

type Writer struct {
	src  Exporter
	fs   hackpadfs.FS
	dir  string
	keep int
	log  *zap.Logger
	now  func() time.Time
}

func New(src Exporter, fsys hackpadfs.FS, dir string, keep int, log *zap.Logger) (*Writer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if keep < 1 {
		keep = 1
	}
	dir = strings.Trim(dir, "/")
	if dir == "" {
		dir = "."
	}
	if dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
	}
	return &Writer{src: src, fs: fsys, dir: dir, keep: keep, log: log, now: time.Now}, nil
}

// NewOS roots the backups at an OS directory.
func NewOS(src Exporter, dir string, keep int, log *zap.Logger) (*Writer, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fsys := osfs.NewFS()
	p, err := fsys.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("backup path %s: %w", abs, err)
	}
	return New(src, fsys, p, keep, log)
}

// Run writes one backup and prunes the oldest beyond keep. It returns the
// backup's file name.
func (w *Writer) Run(ctx context.Context) (string, error) {
	blob, err := w.src.ExportSnapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("backup export: %w", err)
	}
	name := backupPrefix + w.now().UTC().Format("20060102T150405Z") + backupExt
	if err := hackpadfs.WriteFullFile(w.fs, path.Join(w.dir, name), blob, 0o644); err != nil {
		return "", fmt.Errorf("backup write: %w", err)
	}
	w.log.Info("backup written", zap.String("file", name), zap.Int("bytes", len(blob)))

	if err := w.prune(); err != nil {
		w.log.Warn("backup prune failed", zap.Error(err))
	}
	return name, nil
}

// List returns backup file names, newest first.
func (w *Writer) List() ([]string, error) {
	entries, err := hackpadfs.ReadDir(w.fs, w.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if !e.IsDir() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupExt) {
			names = append(names, n)
		}
	}
	// The timestamp layout sorts lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func (w *Writer) prune() error {
	names, err := w.List()
	if err != nil {
		return err
	}
	if len(names) <= w.keep {
		return nil
	}
	for _, n := range names[w.keep:] {
		if err := hackpadfs.Remove(w.fs, path.Join(w.dir, n)); err != nil {
			return err
		}
		w.log.Debug("backup pruned", zap.String("file", n))
	}
	return nil
}
