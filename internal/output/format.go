// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"moviecat/internal/catalog"
	"moviecat/internal/reindex"
	"moviecat/internal/store"
)

// FormatMovie formats a movie line for the list command.
// Format: "{POS:>4}  {TITLE}  ({ID})\n"
func FormatMovie(w io.Writer, m store.Movie) {
	fmt.Fprintf(w, "%4d  %s  (%s)\n", m.Position, normalizeTitle(m.Title), m.ID)
}

// FormatMovieDetail formats all fields of a movie for the show command.
func FormatMovieDetail(w io.Writer, m store.Movie) {
	fmt.Fprintf(w, "id:        %s\n", m.ID)
	fmt.Fprintf(w, "title:     %s\n", normalizeTitle(m.Title))
	fmt.Fprintf(w, "link:      %s\n", m.Link)
	fmt.Fprintf(w, "position:  %d\n", m.Position)
	if m.CreatedDate != "" {
		fmt.Fprintf(w, "created:   %s\n", m.CreatedDate)
	}
	fmt.Fprintf(w, "image:     %s\n", imageSummary(m.Image))
}

// FormatResult summarizes a reindex or compaction.
func FormatResult(w io.Writer, res reindex.Result) {
	fmt.Fprintf(w, "%d of %d movies shifted\n", len(res.Shifts), res.Scanned)
}

// FormatReport prints an audit report. Healthy catalogs print a single line.
func FormatReport(w io.Writer, r reindex.Report) {
	fmt.Fprintf(w, "%d movies, highest position %d\n", r.Count, r.Max)

	for _, pos := range sortedKeys(r.Duplicates) {
		fmt.Fprintf(w, "duplicate position %d: %s\n", pos, strings.Join(r.Duplicates[pos], ", "))
	}
	for _, id := range r.Invalid {
		fmt.Fprintf(w, "invalid position: %s\n", id)
	}
	if r.GapCount > 0 {
		gaps := make([]string, len(r.Gaps))
		for i, g := range r.Gaps {
			gaps[i] = strconv.Itoa(g)
		}
		line := "gaps: " + strings.Join(gaps, ", ")
		if more := r.GapCount - len(r.Gaps); more > 0 {
			line += fmt.Sprintf(" (and %d more)", more)
		}
		fmt.Fprintln(w, line)
	}
}

// FormatWriteError describes what a failed reindex left behind.
func FormatWriteError(w io.Writer, werr *reindex.WriteError) {
	fmt.Fprintf(w, "%d shifts applied, %d not applied:\n", len(werr.Done), len(werr.Remaining()))
	for _, s := range werr.Remaining() {
		fmt.Fprintf(w, "  %s  %d -> %d\n", s.ID, s.From, s.To)
	}
}

func imageSummary(image string) string {
	if image == "" {
		return "(none)"
	}
	size, err := catalog.DataURLSize(image)
	if err != nil {
		return "(not a data URL)"
	}
	mime := strings.TrimPrefix(image, "data:")
	if i := strings.IndexAny(mime, ";,"); i >= 0 {
		mime = mime[:i]
	}
	return fmt.Sprintf("%s, %s", mime, catalog.FormatSize(size))
}

func sortedKeys(m map[int][]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// normalizeTitle normalizes a movie title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
