package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemSlot(t *testing.T) *FSSlot {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	slot, err := NewFSSlot(fsys, "leadgenius_db")
	require.NoError(t, err)
	return slot
}

func openTestStore(t *testing.T, slot Slot) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{WorkDir: t.TempDir(), Slot: slot})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertRow(t *testing.T, s *Store, id, name string) {
	t.Helper()
	err := s.Mutate(context.Background(), func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `INSERT INTO leads (id, name) VALUES (?, ?);`, id, name)
		return err
	})
	require.NoError(t, err)
}

func leadNames(t *testing.T, s *Store) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := s.Read(context.Background(), func(ctx context.Context, db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `SELECT id, name FROM leads;`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id, name string
			if err := rows.Scan(&id, &name); err != nil {
				return err
			}
			out[id] = name
		}
		return rows.Err()
	})
	require.NoError(t, err)
	return out
}

// sqliteFile builds a standalone database image with the given DDL.
func sqliteFile(t *testing.T, ddl string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "foreign.db")
	db, err := openEngine(path)
	require.NoError(t, err)
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestOpenEmptySlotCreatesSchema(t *testing.T) {
	s := openTestStore(t, newMemSlot(t))

	err := s.Read(context.Background(), func(ctx context.Context, db *sql.DB) error {
		ok, err := tableExists(ctx, db, "leads")
		assert.True(t, ok)
		return err
	})
	require.NoError(t, err)
	assert.Empty(t, leadNames(t, s))
}

func TestMutatePersistsBeforeReturning(t *testing.T) {
	slot := newMemSlot(t)
	s := openTestStore(t, slot)

	insertRow(t, s, "a1", "Joe's Pizza")

	blob, err := slot.Load(context.Background(), DefaultSlotKey)
	require.NoError(t, err)
	assert.True(t, len(blob) > 100)

	// A second store on the same slot sees the write without any extra flush.
	other := openTestStore(t, slot)
	assert.Equal(t, map[string]string{"a1": "Joe's Pizza"}, leadNames(t, other))
}

func TestMutateErrorSkipsPersist(t *testing.T) {
	slot := newMemSlot(t)
	s := openTestStore(t, slot)

	boom := errors.New("boom")
	err := s.Mutate(context.Background(), func(ctx context.Context, db *sql.DB) error { return boom })
	require.ErrorIs(t, err, boom)

	_, err = slot.Load(context.Background(), DefaultSlotKey)
	assert.ErrorIs(t, err, ErrSlotEmpty)
}

func TestExportImportRoundTrip(t *testing.T) {
	src := openTestStore(t, newMemSlot(t))
	insertRow(t, src, "a1", "Joe's Pizza")
	insertRow(t, src, "b2", "Bean There")

	blob, err := src.ExportSnapshot(context.Background())
	require.NoError(t, err)

	dstSlot := newMemSlot(t)
	dst := openTestStore(t, dstSlot)
	insertRow(t, dst, "zz", "discarded")

	require.NoError(t, dst.ImportSnapshot(context.Background(), blob))
	assert.Equal(t, leadNames(t, src), leadNames(t, dst))

	// The import itself was persisted.
	reopened := openTestStore(t, dstSlot)
	assert.Equal(t, leadNames(t, src), leadNames(t, reopened))
}

func TestImportRejectsGarbageAndKeepsState(t *testing.T) {
	slot := newMemSlot(t)
	s := openTestStore(t, slot)
	insertRow(t, s, "a1", "Joe's Pizza")

	before, err := slot.Load(context.Background(), DefaultSlotKey)
	require.NoError(t, err)

	for name, blob := range map[string][]byte{
		"empty":     nil,
		"text":      []byte("definitely not a database"),
		"truncated": append([]byte("SQLite format 3\x00"), make([]byte, 200)...),
		"no leads":  sqliteFile(t, `CREATE TABLE other (x INTEGER);`),
		"thin leads": sqliteFile(t, `CREATE TABLE leads (id TEXT PRIMARY KEY, name TEXT, createdAt DATETIME);
INSERT INTO leads (id, name) VALUES ('q', 'Quick Cuts');`),
		"no createdAt": sqliteFile(t, `CREATE TABLE leads (id TEXT PRIMARY KEY, name TEXT);`),
		"versioned thin leads": sqliteFile(t, `CREATE TABLE leads (id TEXT PRIMARY KEY, name TEXT, createdAt DATETIME);
PRAGMA user_version = 7;`),
	} {
		t.Run(name, func(t *testing.T) {
			err := s.ImportSnapshot(context.Background(), blob)
			require.ErrorIs(t, err, ErrInvalidFormat)

			assert.Equal(t, map[string]string{"a1": "Joe's Pizza"}, leadNames(t, s))
			after, err := slot.Load(context.Background(), DefaultSlotKey)
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestImportUpgradesOlderExport(t *testing.T) {
	blob := sqliteFile(t, `
CREATE TABLE leads (
  id TEXT PRIMARY KEY, name TEXT, address TEXT, rating REAL, latitude REAL, longitude REAL,
  industry TEXT, marketGaps TEXT, pitchAngle TEXT, website TEXT, hasChatbot INTEGER,
  hasOnlineBooking INTEGER, sentiment TEXT, isSaved INTEGER DEFAULT 0,
  createdAt DATETIME DEFAULT CURRENT_TIMESTAMP
);
INSERT INTO leads (id, name) VALUES ('old', 'Legacy Salon');`)

	s := openTestStore(t, newMemSlot(t))
	require.NoError(t, s.ImportSnapshot(context.Background(), blob))

	err := s.Read(context.Background(), func(ctx context.Context, db *sql.DB) error {
		assert.True(t, columnExists(ctx, db, "leads", "notes"))
		assert.True(t, columnExists(ctx, db, "leads", "proposal"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"old": "Legacy Salon"}, leadNames(t, s))
}

func TestImportNamesMissingColumns(t *testing.T) {
	s := openTestStore(t, newMemSlot(t))
	insertRow(t, s, "a1", "Joe's Pizza")

	blob := sqliteFile(t, `CREATE TABLE leads (id TEXT PRIMARY KEY, name TEXT, createdAt DATETIME);`)
	err := s.ImportSnapshot(context.Background(), blob)
	require.ErrorIs(t, err, ErrInvalidFormat)
	assert.Contains(t, err.Error(), "address")
	assert.Contains(t, err.Error(), "isSaved")
	assert.NotContains(t, err.Error(), "notes", "notes is added by Migrate")

	// The store still serves the full layout.
	err = s.Mutate(context.Background(), func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `UPDATE leads SET isSaved = NOT COALESCE(isSaved, 0) WHERE id = 'a1';`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a1": "Joe's Pizza"}, leadNames(t, s))
}

func TestOpenFailsOnCorruptSlot(t *testing.T) {
	slot := newMemSlot(t)
	require.NoError(t, slot.Save(context.Background(), DefaultSlotKey, []byte("corrupt")))

	_, err := Open(context.Background(), Options{WorkDir: t.TempDir(), Slot: slot})
	require.ErrorIs(t, err, ErrInvalidFormat)

	// Nothing was reset behind the caller's back.
	blob, err := slot.Load(context.Background(), DefaultSlotKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("corrupt"), blob)
}

type failingSlot struct {
	Slot
	fail bool
}

func (f *failingSlot) Save(ctx context.Context, key string, data []byte) error {
	if f.fail {
		return errors.New("quota exceeded")
	}
	return f.Slot.Save(ctx, key, data)
}

func TestPersistFailureLeavesMemoryAhead(t *testing.T) {
	slot := &failingSlot{Slot: newMemSlot(t)}
	s := openTestStore(t, slot)
	insertRow(t, s, "a1", "Joe's Pizza")

	slot.fail = true
	err := s.Mutate(context.Background(), func(ctx context.Context, db *sql.DB) error {
		_, err := db.ExecContext(ctx, `INSERT INTO leads (id, name) VALUES ('b2', 'Bean There');`)
		return err
	})
	require.ErrorIs(t, err, ErrPersistFailed)
	assert.Contains(t, err.Error(), "quota exceeded")

	assert.Len(t, leadNames(t, s), 2)

	reopened := openTestStore(t, slot.Slot)
	assert.Equal(t, map[string]string{"a1": "Joe's Pizza"}, leadNames(t, reopened))

	slot.fail = false
	require.NoError(t, s.Persist(context.Background()))
	reopened = openTestStore(t, slot.Slot)
	assert.Len(t, leadNames(t, reopened), 2)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(context.Background(), Options{WorkDir: t.TempDir(), Slot: newMemSlot(t)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ExportSnapshot(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Persist(context.Background()), ErrClosed)
}

func TestSlotRejectsPathKeys(t *testing.T) {
	slot := newMemSlot(t)
	assert.Error(t, slot.Save(context.Background(), "../escape", []byte("x")))
	assert.Error(t, slot.Save(context.Background(), "", []byte("x")))
}
