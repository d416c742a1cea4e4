// Package reindex maintains unique, ordered integer positions over a movie
// collection whose store offers no transactions.
//
// Reindex clears a slot for an item being inserted or moved by shifting
// every other item at or after the slot forward by one. It reads the whole
// collection once and issues one independent write per shifted item, so its
// cost is O(N) per call; this is only suitable while the catalog stays small.
//
// Two overlapping calls against the same store can lose updates or produce
// duplicate positions. Callers that need to rule this out serialize calls
// (see package lock) or enable version checks on a store.VersionedStore.
package reindex

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"moviecat/internal/store"
)

// Shift moves one item from one position to another.
type Shift struct {
	ID   string
	From int
	To   int

	// Version is the item version observed when the shift was planned.
	Version string
}

// Result summarizes a completed run.
type Result struct {
	// Scanned is the number of items read from the store.
	Scanned int

	// Shifts lists the writes that were applied, in order.
	Shifts []Shift
}

// Reindexer shifts positions in a store. It holds no state between calls.
type Reindexer struct {
	store        store.Store
	logger       *zap.Logger
	parallelism  int
	versionCheck bool
}

// Option configures a Reindexer.
type Option func(*Reindexer)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reindexer) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithParallelism sets how many position writes may be in flight at once.
// With 1 (the default) writes run in plan order and a failure leaves a gap,
// never a collision. Higher values give up that guarantee.
func WithParallelism(n int) Option {
	return func(r *Reindexer) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithVersionCheck makes writes conditional on the version read during the
// scan when the store implements store.VersionedStore.
func WithVersionCheck(on bool) Option {
	return func(r *Reindexer) {
		r.versionCheck = on
	}
}

// New creates a Reindexer over s.
func New(s store.Store, opts ...Option) *Reindexer {
	r := &Reindexer{
		store:       s,
		logger:      zap.NewNop(),
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Plan computes the shifts needed to vacate target. The item excludeID, if
// present, is ignored. Every other item at or after target moves forward by
// one. Shifts are ordered by descending position so that applying them in
// order never puts two items on the same slot.
func Plan(items []store.Movie, target int, excludeID string) []Shift {
	var shifts []Shift
	for _, m := range items {
		if excludeID != "" && m.ID == excludeID {
			continue
		}
		if m.Position >= target {
			shifts = append(shifts, Shift{
				ID:      m.ID,
				From:    m.Position,
				To:      m.Position + 1,
				Version: m.Version,
			})
		}
	}
	sort.SliceStable(shifts, func(i, j int) bool {
		if shifts[i].From != shifts[j].From {
			return shifts[i].From > shifts[j].From
		}
		return shifts[i].ID < shifts[j].ID
	})
	return shifts
}

// Reindex vacates target by shifting every item at or after it forward by
// one, skipping excludeID. It never writes the excluded item and never
// assigns the target slot; the caller does that afterwards.
//
// A read failure returns a *ReadError and writes nothing. A write failure
// stops the remaining writes and returns a *WriteError; completed writes are
// kept. Retrying with Reindex would shift the completed items a second time;
// use Resume instead.
func (r *Reindexer) Reindex(ctx context.Context, target int, excludeID string) (Result, error) {
	if target < 1 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidPosition, target)
	}

	items, err := r.store.ListAll(ctx)
	if err != nil {
		return Result{}, &ReadError{Err: err}
	}

	shifts := Plan(items, target, excludeID)
	r.logger.Debug("reindex planned",
		zap.Int("target", target),
		zap.String("exclude", excludeID),
		zap.Int("scanned", len(items)),
		zap.Int("shifts", len(shifts)))

	return r.run(ctx, len(items), shifts)
}

func (r *Reindexer) run(ctx context.Context, scanned int, shifts []Shift) (Result, error) {
	if err := r.apply(ctx, shifts); err != nil {
		var done []Shift
		if werr, ok := err.(*WriteError); ok {
			done = werr.Done
		}
		return Result{Scanned: scanned, Shifts: done}, err
	}
	return Result{Scanned: scanned, Shifts: shifts}, nil
}

// Shift states tracked by apply.
const (
	statePending = iota
	stateDone
	stateFailed
)

// apply writes shifts through an errgroup bounded by r.parallelism. The
// first failure cancels the group; writes not yet started are skipped.
func (r *Reindexer) apply(ctx context.Context, shifts []Shift) error {
	if len(shifts) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		states   = make([]int, len(shifts))
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	for i, s := range shifts {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := r.write(gctx, s); err != nil {
				r.logger.Warn("position write failed",
					zap.String("id", s.ID),
					zap.Int("from", s.From),
					zap.Int("to", s.To),
					zap.Error(err))
				mu.Lock()
				states[i] = stateFailed
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return err
			}
			r.logger.Debug("position shifted",
				zap.String("id", s.ID),
				zap.Int("from", s.From),
				zap.Int("to", s.To))
			mu.Lock()
			states[i] = stateDone
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if firstErr == nil {
		// The caller's context may have been cancelled before every write ran.
		if err := ctx.Err(); err != nil {
			firstErr = err
		} else {
			return nil
		}
	}

	werr := &WriteError{Err: firstErr}
	for i, s := range shifts {
		switch states[i] {
		case stateDone:
			werr.Done = append(werr.Done, s)
		case stateFailed:
			werr.Failed = append(werr.Failed, s)
		default:
			werr.Pending = append(werr.Pending, s)
		}
	}
	if len(werr.Pending) == 0 && len(werr.Failed) == 0 {
		return nil
	}
	return werr
}

func (r *Reindexer) write(ctx context.Context, s Shift) error {
	if r.versionCheck && s.Version != "" {
		if vs, ok := r.store.(store.VersionedStore); ok {
			return vs.UpdatePositionIfUnchanged(ctx, s.ID, s.To, s.Version)
		}
	}
	return r.store.UpdatePosition(ctx, s.ID, s.To)
}
