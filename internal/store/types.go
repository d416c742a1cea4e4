package store

import (
	"sort"
	"strings"
)

// Movie represents a single catalog entry.
type Movie struct {
	ID       string
	Title    string
	Link     string
	Image    string // data URL
	Position int

	// CreatedDate is an RFC 3339 timestamp stamped on creation.
	CreatedDate string

	// Version is an opaque token that changes on every write.
	// Empty when the backend does not track versions.
	Version string
}

// SortByPosition orders movies by ascending position, breaking ties by ID.
func SortByPosition(movies []Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		if movies[i].Position != movies[j].Position {
			return movies[i].Position < movies[j].Position
		}
		return strings.Compare(movies[i].ID, movies[j].ID) < 0
	})
}
