package plan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(ctx, "alice")
	require.True(t, errors.Is(err, ErrNoState))

	state := State{Plan: TierPlus, Usage: Usage{
		ComparisonsThisWeek: 3,
		ComparisonsToday:    1,
		LastComparisonDate:  monday,
		WeekStartDate:       monday.Add(-2 * day),
	}}
	require.NoError(t, store.Save(ctx, "alice", state))

	got, err := store.Load(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, state.Plan, got.Plan)
	assert.Equal(t, state.Usage.ComparisonsThisWeek, got.Usage.ComparisonsThisWeek)
	assert.True(t, state.Usage.LastComparisonDate.Equal(got.Usage.LastComparisonDate))
}

func TestFileStoreEscapesUserIDs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "../team/bob", NewState(monday)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "..%2Fteam%2Fbob.json", entries[0].Name())

	_, err = store.Load(context.Background(), "")
	assert.Error(t, err)
}

func TestFileStoreRejectsBrokenState(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "carol.json"), []byte(`{"plan":"hire0","usage":{"comparisonsToday":4}}`), 0o644))
	_, err = store.Load(context.Background(), "carol")
	assert.ErrorContains(t, err, "invalid plan state")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "dave.json"), []byte(`{`), 0o644))
	_, err = store.Load(context.Background(), "dave")
	assert.ErrorContains(t, err, "parse plan state")
}

func TestBookSharesAndPersistsLedgers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	clock := newClock(monday)

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	book := NewBook(store, zap.NewNop(), WithClock(clock.Now), WithLocation(time.UTC))

	first, err := book.Ledger(ctx, "alice")
	require.NoError(t, err)
	second, err := book.Ledger(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, first.RecordComparison(ctx))

	reopened := NewBook(store, nil, WithClock(clock.Now), WithLocation(time.UTC))
	l, err := reopened.Ledger(ctx, "alice")
	require.NoError(t, err)

	snap := l.Snapshot()
	assert.Equal(t, 1, snap.Usage.ComparisonsThisWeek)
	assert.False(t, snap.CanRun)
	assert.True(t, snap.Usage.WeekStartDate.Equal(monday))

	other, err := reopened.Ledger(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, other.CanRunComparison())

	_, err = book.Ledger(ctx, "")
	assert.Error(t, err)
}

type failingStore struct{ MemoryStore }

func (*failingStore) Save(context.Context, string, State) error { return errors.New("disk full") }

func TestRecordKeepsQuotaWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	clock := newClock(monday)
	l := NewLedger(NewState(monday), WithClock(clock.Now), WithStore("erin", &failingStore{}))

	err := l.RecordComparison(ctx)
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1, l.Snapshot().Usage.ComparisonsThisWeek)
	assert.False(t, l.CanRunComparison())
}
