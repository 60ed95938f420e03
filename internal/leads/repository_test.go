package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadgenius-engine/internal/domain"
	"leadgenius-engine/internal/store"
)

func newTestRepo(t *testing.T) (*Repository, *store.Store) {
	t.Helper()
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	slot, err := store.NewFSSlot(fsys, "leadgenius_db")
	require.NoError(t, err)
	s, err := store.Open(context.Background(), store.Options{WorkDir: t.TempDir(), Slot: slot})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	r := NewRepository(s, nil)
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r, s
}

func scouted(id, name string) domain.Lead {
	return domain.Lead{
		ID:               id,
		Name:             name,
		Address:          "12 Main St",
		Rating:           4.2,
		Latitude:         40.7128,
		Longitude:        -74.006,
		Industry:         "pizza",
		MarketGaps:       []string{"No online ordering", "Stale website"},
		PitchAngle:       "Lead with online ordering.",
		Website:          "https://joes.example",
		HasChatbot:       false,
		HasOnlineBooking: true,
		Sentiment:        domain.SentimentPositive,
	}
}

func ptr[T any](v T) *T { return &v }

func mustGet(t *testing.T, r *Repository, id string) domain.Lead {
	t.Helper()
	l, err := r.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, l, "lead %s missing", id)
	return *l
}

func TestUpsertInsertsAndReadsBack(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	in := scouted("a1", "Joe's Pizza")
	require.NoError(t, r.Upsert(ctx, in, nil))

	got := mustGet(t, r, "a1")
	assert.False(t, got.CreatedAt.IsZero())
	got.CreatedAt = time.Time{}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("lead mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertPreservesSavedFlag(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, scouted("a1", "Joe's Pizza"), ptr(true)))

	rescout := scouted("a1", "Joe's Pizza & Pasta")
	rescout.IsSaved = false // ignored without an override
	require.NoError(t, r.Upsert(ctx, rescout, nil))

	got := mustGet(t, r, "a1")
	assert.True(t, got.IsSaved)
	assert.Equal(t, "Joe's Pizza & Pasta", got.Name)

	require.NoError(t, r.Upsert(ctx, rescout, ptr(false)))
	assert.False(t, mustGet(t, r, "a1").IsSaved)
}

func TestUpsertNewLeadDefaultsUnsaved(t *testing.T) {
	r, _ := newTestRepo(t)
	require.NoError(t, r.Upsert(context.Background(), scouted("n1", "New Place"), nil))
	assert.False(t, mustGet(t, r, "n1").IsSaved)
}

func TestUpsertPreserveOnNull(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	first := scouted("a1", "Joe's Pizza")
	first.Notes = "called, interested"
	first.Proposal = "Draft v1"
	require.NoError(t, r.Upsert(ctx, first, nil))

	blank := scouted("a1", "Joe's Pizza")
	blank.Notes = "   "
	require.NoError(t, r.Upsert(ctx, blank, nil))

	got := mustGet(t, r, "a1")
	assert.Equal(t, "called, interested", got.Notes)
	assert.Equal(t, "Draft v1", got.Proposal)

	replaced := scouted("a1", "Joe's Pizza")
	replaced.Notes = "follow up Friday"
	require.NoError(t, r.Upsert(ctx, replaced, nil))

	got = mustGet(t, r, "a1")
	assert.Equal(t, "follow up Friday", got.Notes)
	assert.Equal(t, "Draft v1", got.Proposal)
}

func TestUpsertKeepsCreatedAt(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, scouted("a1", "Joe's Pizza"), nil))
	created := mustGet(t, r, "a1").CreatedAt

	require.NoError(t, r.Upsert(ctx, scouted("a1", "Joe's Pizza"), nil))
	assert.True(t, created.Equal(mustGet(t, r, "a1").CreatedAt))
}

func TestUpsertNormalizesSentiment(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	l := scouted("s1", "Moody Cafe")
	l.Sentiment = "Very Negative!!"
	require.NoError(t, r.Upsert(ctx, l, nil))
	assert.Equal(t, domain.SentimentNeutral, mustGet(t, r, "s1").Sentiment)

	l.Sentiment = " NEGATIVE "
	require.NoError(t, r.Upsert(ctx, l, nil))
	assert.Equal(t, domain.SentimentNegative, mustGet(t, r, "s1").Sentiment)
}

func TestUpsertRejectsEmptyID(t *testing.T) {
	r, _ := newTestRepo(t)
	assert.Error(t, r.Upsert(context.Background(), scouted("", "Nameless"), nil))
}

func TestToggleSaveIsInvolution(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, scouted("a1", "Joe's Pizza"), nil))

	saved, err := r.ToggleSave(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, mustGet(t, r, "a1").IsSaved)

	saved, err = r.ToggleSave(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.False(t, mustGet(t, r, "a1").IsSaved)
}

func TestToggleSaveUnknownID(t *testing.T) {
	r, _ := newTestRepo(t)
	_, err := r.ToggleSave(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateIntelligenceTouchesOnlyPatchedFields(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, scouted("a1", "Joe's Pizza"), nil))
	before := mustGet(t, r, "a1")

	require.NoError(t, r.UpdateIntelligence(ctx, "a1", domain.IntelligencePatch{Proposal: ptr("Website + chatbot bundle")}))

	after := mustGet(t, r, "a1")
	before.Proposal = "Website + chatbot bundle"
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("unexpected change (-want +got):\n%s", diff)
	}
}

func TestUpdateIntelligenceEmptyPatchDoesNotPersist(t *testing.T) {
	fsys, err := mem.NewFS()
	require.NoError(t, err)
	slot, err := store.NewFSSlot(fsys, "leadgenius_db")
	require.NoError(t, err)
	s, err := store.Open(context.Background(), store.Options{WorkDir: t.TempDir(), Slot: slot})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	r := NewRepository(s, nil)

	require.NoError(t, r.UpdateIntelligence(context.Background(), "whatever", domain.IntelligencePatch{}))

	_, err = slot.Load(context.Background(), store.DefaultSlotKey)
	assert.ErrorIs(t, err, store.ErrSlotEmpty)
}

func TestUpdateIntelligenceUnknownID(t *testing.T) {
	r, _ := newTestRepo(t)
	err := r.UpdateIntelligence(context.Background(), "ghost", domain.IntelligencePatch{Notes: ptr("hello")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAllNewestFirst(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, r.Upsert(ctx, scouted(id, id), nil))
	}
	// Re-upserting does not move a lead.
	require.NoError(t, r.Upsert(ctx, scouted("first", "first again"), nil))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	var ids []string
	for _, l := range all {
		ids = append(ids, l.ID)
	}
	assert.Equal(t, []string{"third", "second", "first"}, ids)
}

func TestGetByIDMissingIsNil(t *testing.T) {
	r, _ := newTestRepo(t)
	l, err := r.GetByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, l)
}

// Walks the lifecycle of a single lead through save, assistant notes and a re-scout.
func TestLeadLifecycleScenario(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, domain.Lead{ID: "a1", Name: "Joe's Pizza", Rating: 4.2}, ptr(false)))

	_, err := r.ToggleSave(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, mustGet(t, r, "a1").IsSaved)

	before := mustGet(t, r, "a1")
	require.NoError(t, r.UpdateIntelligence(ctx, "a1", domain.IntelligencePatch{Notes: ptr("called, interested")}))
	after := mustGet(t, r, "a1")
	assert.Equal(t, "called, interested", after.Notes)
	before.Notes = after.Notes
	assert.Equal(t, before, after)

	require.NoError(t, r.Upsert(ctx, domain.Lead{ID: "a1", Name: "Joe's Pizza", Rating: 4.3}, nil))
	final := mustGet(t, r, "a1")
	assert.Equal(t, "called, interested", final.Notes)
	assert.True(t, final.IsSaved)
	assert.Equal(t, 4.3, final.Rating)
}

func TestSnapshotRoundTripThroughRepository(t *testing.T) {
	src, srcStore := newTestRepo(t)
	ctx := context.Background()

	a := scouted("a1", "Joe's Pizza")
	a.Notes = "called"
	require.NoError(t, src.Upsert(ctx, a, ptr(true)))
	require.NoError(t, src.Upsert(ctx, scouted("b2", "Bean There"), nil))

	blob, err := srcStore.ExportSnapshot(ctx)
	require.NoError(t, err)

	dst, dstStore := newTestRepo(t)
	require.NoError(t, dstStore.ImportSnapshot(ctx, blob))

	want, err := src.GetAll(ctx)
	require.NoError(t, err)
	got, err := dst.GetAll(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedImportLeavesLeadsUnchanged(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.Upsert(ctx, scouted("a1", "Joe's Pizza"), nil))

	before, err := r.GetAll(ctx)
	require.NoError(t, err)

	err = s.ImportSnapshot(ctx, []byte("PK\x03\x04 this is a zip"))
	require.ErrorIs(t, err, store.ErrInvalidFormat)

	after, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
