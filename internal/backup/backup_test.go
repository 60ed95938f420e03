package backup

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticExporter struct {
	blob []byte
	err  error
}

func (s staticExporter) ExportSnapshot(context.Context) ([]byte, error) { return s.blob, s.err }

func newWriter(t *testing.T, src Exporter, keep int) (*Writer, hackpadfs.FS) {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	w, err := New(src, fsys, "backups", keep, nil)
	require.NoError(t, err)
	return w, fsys
}

func TestRunWritesAndPrunes(t *testing.T) {
	w, fsys := newWriter(t, staticExporter{blob: []byte("SQLite format 3\x00...")}, 2)

	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	w.now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	var written []string
	for i := 0; i < 4; i++ {
		name, err := w.Run(context.Background())
		require.NoError(t, err)
		written = append(written, name)
	}
	assert.Equal(t, "leadgenius_backup_20250301T100000Z.sqlite", written[0])

	names, err := w.List()
	require.NoError(t, err)
	assert.Equal(t, []string{written[3], written[2]}, names)

	b, err := hackpadfs.ReadFile(fsys, path.Join("backups", written[3]))
	require.NoError(t, err)
	assert.Equal(t, []byte("SQLite format 3\x00..."), b)
}

func TestRunExportFailure(t *testing.T) {
	w, _ := newWriter(t, staticExporter{err: errors.New("store is closed")}, 3)
	_, err := w.Run(context.Background())
	assert.Error(t, err)

	names, err := w.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "leadgenius_export_2025-03-01.sqlite", ExportFilename(time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC)))
}
