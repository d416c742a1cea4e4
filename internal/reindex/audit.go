package reindex

import (
	"sort"

	"moviecat/internal/store"
)

// Report describes the health of a position sequence.
type Report struct {
	Count int
	Max   int

	// Duplicates maps a position to the IDs sharing it.
	Duplicates map[int][]string

	// Gaps lists unused positions between 1 and Max, up to maxListedGaps.
	Gaps []int

	// GapCount is the total number of unused positions between 1 and Max.
	GapCount int

	// Invalid lists IDs whose position is below 1.
	Invalid []string
}

// OK reports whether positions are unique and positive.
// Gaps are allowed.
func (r Report) OK() bool {
	return len(r.Duplicates) == 0 && len(r.Invalid) == 0
}

// Dense reports whether positions are exactly 1..Count.
func (r Report) Dense() bool {
	return r.OK() && r.GapCount == 0
}

const maxListedGaps = 100

// Audit inspects items without modifying anything.
func Audit(items []store.Movie) Report {
	rep := Report{
		Count:      len(items),
		Duplicates: make(map[int][]string),
	}

	byPos := make(map[int][]string)
	for _, m := range items {
		if m.Position < 1 {
			rep.Invalid = append(rep.Invalid, m.ID)
			continue
		}
		byPos[m.Position] = append(byPos[m.Position], m.ID)
		if m.Position > rep.Max {
			rep.Max = m.Position
		}
	}

	used := make([]int, 0, len(byPos))
	for pos, ids := range byPos {
		used = append(used, pos)
		if len(ids) > 1 {
			sort.Strings(ids)
			rep.Duplicates[pos] = ids
		}
	}
	sort.Ints(used)

	// Walk the sorted positions; Max may be far larger than Count.
	next := 1
	for _, pos := range used {
		if pos > next {
			rep.GapCount += pos - next
			for g := next; g < pos && len(rep.Gaps) < maxListedGaps; g++ {
				rep.Gaps = append(rep.Gaps, g)
			}
		}
		next = pos + 1
	}
	sort.Strings(rep.Invalid)
	return rep
}
