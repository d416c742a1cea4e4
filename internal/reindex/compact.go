package reindex

import (
	"context"

	"go.uber.org/zap"

	"moviecat/internal/store"
)

// PlanCompact computes the shifts that renumber items to 1..N in their
// current display order. Items already in place are not touched.
func PlanCompact(items []store.Movie) []Shift {
	sorted := make([]store.Movie, len(items))
	copy(sorted, items)
	store.SortByPosition(sorted)

	var shifts []Shift
	for i, m := range sorted {
		want := i + 1
		if m.Position == want {
			continue
		}
		shifts = append(shifts, Shift{
			ID:      m.ID,
			From:    m.Position,
			To:      want,
			Version: m.Version,
		})
	}
	orderShifts(shifts)
	return shifts
}

// Compact closes gaps left by deletions and failed runs, renumbering every
// item to a dense 1..N sequence without changing their relative order.
// Duplicate positions are split, ordered by ID.
func (r *Reindexer) Compact(ctx context.Context) (Result, error) {
	items, err := r.store.ListAll(ctx)
	if err != nil {
		return Result{}, &ReadError{Err: err}
	}

	shifts := PlanCompact(items)
	r.logger.Debug("compact planned",
		zap.Int("scanned", len(items)),
		zap.Int("shifts", len(shifts)))

	return r.run(ctx, len(items), shifts)
}
