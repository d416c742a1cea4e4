package reindex_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"moviecat/internal/reindex"
	"moviecat/internal/store"
	"moviecat/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func movies(positions map[string]int) []store.Movie {
	var result []store.Movie
	for id, pos := range positions {
		result = append(result, store.Movie{ID: id, Title: "Movie " + id, Position: pos})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func TestReindex_InsertShiftsTail(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3})...)
	rx := reindex.New(fs)

	res, err := rx.Reindex(context.Background(), 2, "")
	require.NoError(t, err)

	assert.Equal(t, 3, res.Scanned)
	assert.Len(t, res.Shifts, 2)
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 3, "c": 4}, fs.Positions()); diff != "" {
		t.Errorf("positions mismatch (-want +got):\n%s", diff)
	}

	// Caller claims the vacated slot.
	created, err := fs.Create(context.Background(), store.Movie{Title: "new", Position: 2})
	require.NoError(t, err)
	got := fs.Positions()
	assert.Equal(t, 2, got[created.ID])
	assert.True(t, reindex.Audit(mustList(t, fs)).Dense())
}

func TestReindex_MoveExcludesMovedItem(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3})...)
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 1, "b")
	require.NoError(t, err)

	// Every non-excluded item at or after 1 shifts, including c.
	assert.Equal(t, map[string]int{"a": 2, "b": 2, "c": 4}, fs.Positions())
	for _, w := range fs.Writes() {
		assert.NotEqual(t, "b", w.ID, "excluded item must not be written")
	}

	require.NoError(t, fs.UpdatePosition(context.Background(), "b", 1))
	assert.Equal(t, map[string]int{"a": 2, "b": 1, "c": 4}, fs.Positions())
}

func TestReindex_WritesHighestFirst(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3, "d": 7})...)
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 2, "")
	require.NoError(t, err)

	want := []testutil.Write{{ID: "d", Position: 8}, {ID: "c", Position: 4}, {ID: "b", Position: 3}}
	assert.Equal(t, want, fs.Writes())
}

func TestReindex_EmptyStore(t *testing.T) {
	fs := testutil.NewFakeStore()
	rx := reindex.New(fs)

	res, err := rx.Reindex(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)
	assert.Empty(t, res.Shifts)
	assert.Empty(t, fs.Writes())
}

func TestReindex_TargetPastEnd(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2})...)
	rx := reindex.New(fs)

	for _, target := range []int{3, 100, 1 << 30} {
		_, err := rx.Reindex(context.Background(), target, "")
		require.NoError(t, err)
	}
	assert.Empty(t, fs.Writes())
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, fs.Positions())
}

func TestReindex_InvalidTarget(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1})...)
	fs.ListAllErr = errors.New("must not be called")
	rx := reindex.New(fs)

	for _, target := range []int{0, -1} {
		_, err := rx.Reindex(context.Background(), target, "")
		assert.ErrorIs(t, err, reindex.ErrInvalidPosition)
	}
}

func TestReindex_UnknownExcludeID(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2})...)
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 1, "missing")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 2, "b": 3}, fs.Positions())
}

func TestReindex_ExistingDuplicatesShiftTogether(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 2, "d": 1})...)
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 3, "c": 3, "d": 1}, fs.Positions())
}

func TestReindex_ReadFailureWritesNothing(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1})...)
	fs.ListAllErr = errors.New("quota exceeded")
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, reindex.ErrStoreRead)
	assert.NotErrorIs(t, err, reindex.ErrStoreWrite)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, fs.Writes())
}

func TestReindex_WriteFailureAbortsAndLeavesGap(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3, "d": 4})...)
	fs.FailWriteAt = 2
	fs.FailWriteErr = errors.New("unavailable")
	rx := reindex.New(fs)

	res, err := rx.Reindex(context.Background(), 2, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, reindex.ErrStoreWrite)

	var werr *reindex.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, []reindex.Shift{{ID: "d", From: 4, To: 5, Version: "1"}}, werr.Done)
	assert.Equal(t, []reindex.Shift{{ID: "c", From: 3, To: 4, Version: "1"}}, werr.Failed)
	assert.Equal(t, []reindex.Shift{{ID: "b", From: 2, To: 3, Version: "1"}}, werr.Pending)
	assert.Equal(t, werr.Done, res.Shifts)

	// Aborted: b was never attempted, and nothing collides.
	assert.Equal(t, map[string]int{"a": 1, "b": 2, "c": 3, "d": 5}, fs.Positions())
	rep := reindex.Audit(mustList(t, fs))
	assert.True(t, rep.OK())
	assert.Equal(t, []int{4}, rep.Gaps)
}

func TestReindex_NaiveRetryOverShifts(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3, "d": 4})...)
	fs.FailWriteAt = 2
	fs.FailWriteErr = errors.New("unavailable")
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 2, "")
	require.Error(t, err)

	fs.FailWriteAt = 0
	_, err = rx.Reindex(context.Background(), 2, "")
	require.NoError(t, err)

	// d was shifted twice.
	assert.Equal(t, map[string]int{"a": 1, "b": 3, "c": 4, "d": 6}, fs.Positions())
}

func TestResume_CompletesFailedRun(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3, "d": 4})...)
	fs.FailWriteAt = 2
	fs.FailWriteErr = errors.New("unavailable")
	rx := reindex.New(fs, reindex.WithVersionCheck(true))

	_, err := rx.Reindex(context.Background(), 2, "")
	var werr *reindex.WriteError
	require.True(t, errors.As(err, &werr))

	fs.FailWriteAt = 0
	res, err := rx.Resume(context.Background(), werr)
	require.NoError(t, err)
	assert.Len(t, res.Shifts, 2)
	assert.Equal(t, map[string]int{"a": 1, "b": 3, "c": 4, "d": 5}, fs.Positions())

	// Resuming again changes nothing.
	fs.ResetWrites()
	res, err = rx.Resume(context.Background(), werr)
	require.NoError(t, err)
	assert.Empty(t, res.Shifts)
	assert.Empty(t, fs.Writes())
}

func TestResume_SkipsItemsMovedElsewhere(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3})...)
	fs.FailWriteAt = 1
	fs.FailWriteErr = errors.New("unavailable")
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 2, "")
	var werr *reindex.WriteError
	require.True(t, errors.As(err, &werr))
	assert.Empty(t, werr.Done)

	fs.FailWriteAt = 0
	fs.SetPosition("c", 9)
	require.NoError(t, fs.Delete(context.Background(), "b"))

	res, err := rx.Resume(context.Background(), werr)
	require.NoError(t, err)
	assert.Empty(t, res.Shifts)
	assert.Equal(t, map[string]int{"a": 1, "c": 9}, fs.Positions())
}

func TestResume_Nil(t *testing.T) {
	rx := reindex.New(testutil.NewFakeStore())
	res, err := rx.Resume(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Shifts)
}

func TestReindex_VersionCheckDetectsConcurrentMove(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3})...)
	once := false
	fs.BeforeWrite = func(id string, position int) {
		if !once {
			once = true
			fs.SetPosition("b", 10) // another admin moves b meanwhile
		}
	}
	rx := reindex.New(fs, reindex.WithVersionCheck(true))

	_, err := rx.Reindex(context.Background(), 2, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.ErrorIs(t, err, reindex.ErrStoreWrite)
	assert.Equal(t, 10, fs.Positions()["b"])
}

func TestReindex_WithoutVersionCheckLosesUpdate(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2, "c": 3})...)
	once := false
	fs.BeforeWrite = func(id string, position int) {
		if !once {
			once = true
			fs.SetPosition("b", 10)
		}
	}
	rx := reindex.New(fs)

	_, err := rx.Reindex(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, 3, fs.Positions()["b"], "stale snapshot overwrites the concurrent move")
}

func TestReindex_Parallel(t *testing.T) {
	initial := make(map[string]int)
	for i := 1; i <= 50; i++ {
		initial[fmt.Sprintf("m%02d", i)] = i
	}
	fs := testutil.NewFakeStore(movies(initial)...)
	rx := reindex.New(fs, reindex.WithParallelism(8))

	res, err := rx.Reindex(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Len(t, res.Shifts, 50)

	for id, pos := range fs.Positions() {
		assert.Equal(t, initial[id]+1, pos, id)
	}
}

func TestReindex_ParallelFailureStopsWrites(t *testing.T) {
	initial := make(map[string]int)
	for i := 1; i <= 40; i++ {
		initial[fmt.Sprintf("m%02d", i)] = i
	}
	fs := testutil.NewFakeStore(movies(initial)...)
	fs.FailWrites["m40"] = errors.New("boom")
	rx := reindex.New(fs, reindex.WithParallelism(4))

	_, err := rx.Reindex(context.Background(), 1, "")
	var werr *reindex.WriteError
	require.True(t, errors.As(err, &werr))
	require.NotEmpty(t, werr.Failed)
	assert.Equal(t, "m40", werr.Failed[0].ID)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, 40, len(werr.Done)+len(werr.Failed)+len(werr.Pending))
	assert.Equal(t, 40, fs.Positions()["m40"])
}

func TestReindex_CancelledContext(t *testing.T) {
	fs := testutil.NewFakeStore(movies(map[string]int{"a": 1, "b": 2})...)
	rx := reindex.New(fs)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rx.Reindex(ctx, 1, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fs.Writes())
}

// TestReindex_Properties checks uniqueness, vacancy, exclusion and order
// preservation over random collections.
func TestReindex_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(12)
		perm := rng.Perm(n * 2)
		initial := make(map[string]int, n)
		for i := 0; i < n; i++ {
			initial[fmt.Sprintf("m%d", i)] = perm[i] + 1
		}
		target := rng.Intn(n*2+2) + 1
		exclude := ""
		if n > 0 && rng.Intn(2) == 0 {
			exclude = fmt.Sprintf("m%d", rng.Intn(n))
		}

		fs := testutil.NewFakeStore(movies(initial)...)
		_, err := reindex.New(fs).Reindex(context.Background(), target, exclude)
		require.NoError(t, err)
		got := fs.Positions()

		seen := make(map[int]string)
		for id, pos := range got {
			if id == exclude {
				assert.Equal(t, initial[id], pos, "excluded item changed")
				continue
			}
			if initial[id] >= target {
				assert.Equal(t, initial[id]+1, pos, "affected item %s", id)
			} else {
				assert.Equal(t, initial[id], pos, "unaffected item %s", id)
			}
			assert.NotEqual(t, target, pos, "slot %d not vacated", target)
			if other, dup := seen[pos]; dup {
				t.Fatalf("iteration %d: %s and %s share position %d", iter, id, other, pos)
			}
			seen[pos] = id
		}

		for a := range got {
			for b := range got {
				if a == exclude || b == exclude {
					continue
				}
				if initial[a] < initial[b] {
					assert.Less(t, got[a], got[b], "order of %s and %s", a, b)
				}
			}
		}
	}
}

func mustList(t *testing.T, s store.Store) []store.Movie {
	t.Helper()
	items, err := s.ListAll(context.Background())
	require.NoError(t, err)
	return items
}
