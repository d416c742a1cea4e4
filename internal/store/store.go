// Package store defines the backend-agnostic interfaces for movie persistence.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a movie does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write finds the item
	// changed since it was read.
	ErrConflict = errors.New("item modified concurrently")

	// ErrUnauthorized is returned when credentials are missing, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")
)

// Store is the minimal record store the position reindexer depends on.
// All backend calls made by the reindexer go through this interface.
type Store interface {
	// ListAll returns every movie in the collection.
	// No ordering is guaranteed.
	ListAll(ctx context.Context) ([]Movie, error)

	// UpdatePosition sets the position field of a single movie.
	// The write is unconditional: no compare-and-swap is performed.
	UpdatePosition(ctx context.Context, id string, position int) error
}

// VersionedStore is implemented by stores that can condition a position
// write on the version observed by ListAll.
type VersionedStore interface {
	Store

	// UpdatePositionIfUnchanged sets the position only if the movie's version
	// still equals version. Returns ErrConflict otherwise.
	UpdatePositionIfUnchanged(ctx context.Context, id string, position int, version string) error
}

// Catalog is the full set of operations the admin flows need.
type Catalog interface {
	Store

	// Get returns a single movie by ID.
	Get(ctx context.Context, id string) (Movie, error)

	// Create stores a new movie and returns it with its assigned ID.
	Create(ctx context.Context, m Movie) (Movie, error)

	// Update overwrites the payload fields (title, link, image, created date)
	// of an existing movie. Position is left untouched.
	Update(ctx context.Context, m Movie) error

	// Delete removes a movie.
	Delete(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}
