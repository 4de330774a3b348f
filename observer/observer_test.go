package observer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lookout/errors"
	"github.com/grovetools/lookout/itemlist"
	"github.com/grovetools/lookout/testutil"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func newTestObserver(t *testing.T, dir string, spec itemlist.SortSpec, opts ...Option) *Observer {
	t.Helper()
	opts = append(opts, WithLogger(testLogger()),
		WithListOptions(itemlist.WithLogger(testLogger())))
	obs, err := New(dir, spec, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = obs.Close() })
	return obs
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope"), itemlist.SortSpec{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWatchFailed, errors.GetCode(err))
}

func TestItemForAssignsStableIDs(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "report.txt", "hello")
	obs := newTestObserver(t, dir, itemlist.SortSpec{Key: itemlist.SortByName})

	first, err := obs.ItemFor(path)
	require.NoError(t, err)
	second, err := obs.ItemFor(path)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same locator must resolve to the same id")
	assert.Equal(t, "report.txt", first.Name)
	assert.EqualValues(t, 5, first.Size)

	other := testutil.WriteFile(t, dir, "other.txt", "x")
	third, err := obs.ItemFor(other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)

	t.Run("missing file", func(t *testing.T) {
		_, err := obs.ItemFor(filepath.Join(dir, "ghost"))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeBadLocator, errors.GetCode(err))
	})
}

func TestRescanBuildsSortedList(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFileSized(t, dir, "small.bin", 10)
	testutil.WriteFileSized(t, dir, "large.bin", 300)
	testutil.WriteFileSized(t, dir, "medium.bin", 100)
	testutil.Mkdir(t, dir, "folder")

	obs := newTestObserver(t, dir, itemlist.SortSpec{Key: itemlist.SortBySize})
	require.NoError(t, obs.Rescan())

	list := obs.List()
	require.Equal(t, 4, list.Count())
	// Directories compare at size zero and sort first under ascending size.
	assert.Equal(t, "folder", list.ItemAt(0).Name)
	assert.True(t, list.ItemAt(0).IsDir)
	assert.Equal(t, "small.bin", list.ItemAt(1).Name)
	assert.Equal(t, "medium.bin", list.ItemAt(2).Name)
	assert.Equal(t, "large.bin", list.ItemAt(3).Name)

	t.Run("rescan with no changes dispatches nothing", func(t *testing.T) {
		var batches int
		token := list.Subscribe(func(_ *itemlist.List, _ *itemlist.ChangeBatch) { batches++ })
		defer list.Unsubscribe(token)
		require.NoError(t, obs.Rescan())
		assert.Zero(t, batches)
	})
}

func TestRescanOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	oldest := testutil.WriteFile(t, dir, "oldest.txt", testutil.RandomString(8))
	newest := testutil.WriteFile(t, dir, "newest.txt", testutil.RandomString(8))
	middle := testutil.WriteFile(t, dir, "middle.txt", testutil.RandomString(8))
	testutil.SetModTime(t, oldest, base)
	testutil.SetModTime(t, middle, base.Add(time.Hour))
	testutil.SetModTime(t, newest, base.Add(2*time.Hour))

	obs := newTestObserver(t, dir, itemlist.SortSpec{Key: itemlist.SortByModTime})
	require.NoError(t, obs.Rescan())

	list := obs.List()
	require.Equal(t, 3, list.Count())
	assert.Equal(t, "oldest.txt", list.ItemAt(0).Name)
	assert.Equal(t, "middle.txt", list.ItemAt(1).Name)
	assert.Equal(t, "newest.txt", list.ItemAt(2).Name)
}

func TestRescanIgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "keep.txt", "k")
	testutil.WriteFile(t, dir, "noise.log", "n")
	testutil.WriteFile(t, dir, ".hidden", "h")

	obs := newTestObserver(t, dir, itemlist.SortSpec{Key: itemlist.SortByName},
		WithIgnore([]string{"*.log", ".*"}))
	require.NoError(t, obs.Rescan())

	require.Equal(t, 1, obs.List().Count())
	assert.Equal(t, "keep.txt", obs.List().ItemAt(0).Name)
}

func TestRescanMintsFreshIDAfterDeletion(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "volatile.txt", "v1")
	obs := newTestObserver(t, dir, itemlist.SortSpec{Key: itemlist.SortByName})

	require.NoError(t, obs.Rescan())
	require.Equal(t, 1, obs.List().Count())
	originalID := obs.List().ItemAt(0).ID

	require.NoError(t, os.Remove(path))
	require.NoError(t, obs.Rescan())
	require.Zero(t, obs.List().Count())

	// A new file at the same path is a new item, never a resurrected one.
	testutil.WriteFile(t, dir, "volatile.txt", "v2")
	require.NoError(t, obs.Rescan())
	require.Equal(t, 1, obs.List().Count())
	assert.NotEqual(t, originalID, obs.List().ItemAt(0).ID)
}

func TestWatchPicksUpCreateAndRemove(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "seed.txt", "s")

	obs := newTestObserver(t, dir, itemlist.SortSpec{Key: itemlist.SortByName},
		WithDebounce(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- obs.Start(ctx) }()

	list := obs.List()
	require.Eventually(t, func() bool { return list.Count() == 1 },
		5*time.Second, 10*time.Millisecond, "initial rescan should pick up the seed file")

	path := testutil.WriteFile(t, dir, "arrival.txt", "a")
	require.Eventually(t, func() bool { return list.Count() == 2 },
		5*time.Second, 10*time.Millisecond, "create event should add the file")

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool { return list.Count() == 1 },
		5*time.Second, 10*time.Millisecond, "remove event should drop the file")
	assert.Equal(t, "seed.txt", list.ItemAt(0).Name)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("observer did not stop after cancellation")
	}
}
