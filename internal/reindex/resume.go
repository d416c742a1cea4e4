package reindex

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Resume retries the unfinished part of a failed Reindex or Compact.
//
// It re-reads the store and reapplies only those failed or pending shifts
// whose item still sits at its original position. Items that were already
// moved, by the failed run or by anyone else, and items that no longer exist
// are left alone. Calling Resume again after it succeeds is a no-op.
func (r *Reindexer) Resume(ctx context.Context, werr *WriteError) (Result, error) {
	if werr == nil {
		return Result{}, nil
	}

	items, err := r.store.ListAll(ctx)
	if err != nil {
		return Result{}, &ReadError{Err: err}
	}

	current := make(map[string]int, len(items))
	versions := make(map[string]string, len(items))
	for _, m := range items {
		current[m.ID] = m.Position
		versions[m.ID] = m.Version
	}

	var shifts []Shift
	for _, s := range werr.Remaining() {
		pos, ok := current[s.ID]
		if !ok || pos != s.From {
			continue
		}
		s.Version = versions[s.ID]
		shifts = append(shifts, s)
	}
	orderShifts(shifts)

	r.logger.Debug("resume planned",
		zap.Int("remaining", len(werr.Remaining())),
		zap.Int("shifts", len(shifts)))

	return r.run(ctx, len(items), shifts)
}

// orderShifts sorts shifts so that sequential application never collides:
// items moving down go first, lowest target first; items moving up follow,
// highest target first.
func orderShifts(shifts []Shift) {
	sort.SliceStable(shifts, func(i, j int) bool {
		a, b := shifts[i], shifts[j]
		aDown, bDown := a.To < a.From, b.To < b.From
		if aDown != bDown {
			return aDown
		}
		if aDown {
			return a.To < b.To
		}
		return a.To > b.To
	})
}
