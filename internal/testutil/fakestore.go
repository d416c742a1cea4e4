// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"moviecat/internal/store"
)

// Write records a single position write made against a FakeStore.
type Write struct {
	ID       string
	Position int
}

// FakeStore is an in-memory implementation of store.Catalog and
// store.VersionedStore for testing.
type FakeStore struct {
	mu     sync.Mutex
	movies []store.Movie
	writes []Write
	nextID int
	calls  int // UpdatePosition* calls, including failed ones

	// Error injection for testing
	ListAllErr error
	GetErr     error
	CreateErr  error
	UpdateErr  error
	DeleteErr  error

	// FailWriteAt makes the n-th position write (1-based) return FailWriteErr.
	// Zero disables it.
	FailWriteAt  int
	FailWriteErr error

	// FailWrites maps a movie ID to the error every position write to it returns.
	FailWrites map[string]error

	// BeforeWrite, if set, runs before each position write is applied
	// and without the store lock held.
	BeforeWrite func(id string, position int)
}

// NewFakeStore creates a FakeStore seeded with the given movies.
// Seeded movies get version "1".
func NewFakeStore(movies ...store.Movie) *FakeStore {
	f := &FakeStore{FailWrites: make(map[string]error)}
	for _, m := range movies {
		m.Version = "1"
		f.movies = append(f.movies, m)
	}
	return f
}

// Positions returns a map of movie ID to current position.
func (f *FakeStore) Positions() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make(map[string]int, len(f.movies))
	for _, m := range f.movies {
		result[m.ID] = m.Position
	}
	return result
}

// Writes returns the successful position writes in the order they were applied.
func (f *FakeStore) Writes() []Write {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]Write, len(f.writes))
	copy(result, f.writes)
	return result
}

// ResetWrites clears the write log.
func (f *FakeStore) ResetWrites() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = nil
	f.calls = 0
}

// SetPosition changes a movie's position directly, bumping its version
// without recording a write. Useful to simulate a concurrent writer.
func (f *FakeStore) SetPosition(id string, position int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		f.movies[i].Position = position
		f.bump(i)
	}
}

// ListAll implements store.Store.
func (f *FakeStore) ListAll(ctx context.Context) ([]store.Movie, error) {
	if f.ListAllErr != nil {
		return nil, f.ListAllErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result := make([]store.Movie, len(f.movies))
	copy(result, f.movies)
	return result, nil
}

// UpdatePosition implements store.Store.
func (f *FakeStore) UpdatePosition(ctx context.Context, id string, position int) error {
	return f.writePosition(ctx, id, position, "")
}

// UpdatePositionIfUnchanged implements store.VersionedStore.
func (f *FakeStore) UpdatePositionIfUnchanged(ctx context.Context, id string, position int, version string) error {
	return f.writePosition(ctx, id, position, version)
}

func (f *FakeStore) writePosition(ctx context.Context, id string, position int, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()

	if f.FailWriteAt > 0 && call == f.FailWriteAt {
		return f.FailWriteErr
	}
	if err, ok := f.FailWrites[id]; ok && err != nil {
		return err
	}

	if f.BeforeWrite != nil {
		f.BeforeWrite(id, position)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.index(id)
	if i < 0 {
		return store.ErrNotFound
	}
	if version != "" && f.movies[i].Version != version {
		return store.ErrConflict
	}
	f.movies[i].Position = position
	f.bump(i)
	f.writes = append(f.writes, Write{ID: id, Position: position})
	return nil
}

// Get implements store.Catalog.
func (f *FakeStore) Get(ctx context.Context, id string) (store.Movie, error) {
	if f.GetErr != nil {
		return store.Movie{}, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.index(id); i >= 0 {
		return f.movies[i], nil
	}
	return store.Movie{}, store.ErrNotFound
}

// Create implements store.Catalog.
func (f *FakeStore) Create(ctx context.Context, m store.Movie) (store.Movie, error) {
	if f.CreateErr != nil {
		return store.Movie{}, f.CreateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Version = "1"
	f.movies = append(f.movies, m)
	return m, nil
}

// Update implements store.Catalog.
func (f *FakeStore) Update(ctx context.Context, m store.Movie) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.index(m.ID)
	if i < 0 {
		return store.ErrNotFound
	}
	cur := &f.movies[i]
	cur.Title = m.Title
	cur.Link = m.Link
	cur.Image = m.Image
	cur.CreatedDate = m.CreatedDate
	f.bump(i)
	return nil
}

// Delete implements store.Catalog.
func (f *FakeStore) Delete(ctx context.Context, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.index(id)
	if i < 0 {
		return store.ErrNotFound
	}
	f.movies = append(f.movies[:i], f.movies[i+1:]...)
	return nil
}

// Close implements store.Catalog.
func (f *FakeStore) Close() error { return nil }

func (f *FakeStore) index(id string) int {
	for i, m := range f.movies {
		if m.ID == id {
			return i
		}
	}
	return -1
}

func (f *FakeStore) bump(i int) {
	v, _ := strconv.Atoi(f.movies[i].Version)
	f.movies[i].Version = strconv.Itoa(v + 1)
}
