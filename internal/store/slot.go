package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
)

// ErrSlotEmpty is returned by Slot.Load when nothing has been persisted under the key yet.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is durable single-key blob storage. Save fully overwrites the previous value.
type Slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// FSSlot keeps each key as one file in a hackpadfs filesystem, so the same
// code runs against the OS disk, an in-memory FS in tests, or IndexedDB under js/wasm.
type FSSlot struct {
	fs  hackpadfs.FS
	dir string
}

func NewFSSlot(fsys hackpadfs.FS, dir string) (*FSSlot, error) {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		dir = "."
	}
	if dir != "." {
		if err := hackpadfs.MkdirAll(fsys, dir, 0o755); err != nil {
			return nil, fmt.Errorf("create slot dir: %w", err)
		}
	}
	return &FSSlot{fs: fsys, dir: dir}, nil
}

// NewOSSlot roots a slot at an OS directory.
func NewOSSlot(dir string) (*FSSlot, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	fsys := osfs.NewFS()
	p, err := fsys.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("slot path %s: %w", abs, err)
	}
	return NewFSSlot(fsys, p)
}

func (s *FSSlot) Load(_ context.Context, key string) ([]byte, error) {
	name, err := s.name(key)
	if err != nil {
		return nil, err
	}
	b, err := hackpadfs.ReadFile(s.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, ErrSlotEmpty
	}
	return b, nil
}

func (s *FSSlot) Save(_ context.Context, key string, data []byte) error {
	name, err := s.name(key)
	if err != nil {
		return err
	}
	return hackpadfs.WriteFullFile(s.fs, name, data, 0o644)
}

func (s *FSSlot) name(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid slot key %q", key)
	}
	return path.Join(s.dir, key), nil
}
