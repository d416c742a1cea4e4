// Package catalog implements the admin flows over a movie store: adding a
// movie at a chosen position, moving it, editing its payload, and removing it.
//
// Position changes are made while holding a lock.Locker so that the reindex
// and the write claiming the vacated slot happen as one unit with respect to
// other callers sharing the same locker.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"moviecat/internal/lock"
	"moviecat/internal/reindex"
	"moviecat/internal/store"
)

// ErrAmbiguous is returned when a position reference matches several movies.
var ErrAmbiguous = errors.New("ambiguous reference")

// Service runs the catalog flows.
type Service struct {
	store  store.Catalog
	rx     *reindex.Reindexer
	locker lock.Locker
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Service. A nil rx defaults to a sequential Reindexer over c,
// a nil locker to an in-process mutex and a nil logger to a no-op logger.
func New(c store.Catalog, rx *reindex.Reindexer, locker lock.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rx == nil {
		rx = reindex.New(c, reindex.WithLogger(logger))
	}
	if locker == nil {
		locker = lock.NewMutex()
	}
	return &Service{
		store:  c,
		rx:     rx,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// List returns all movies in display order.
func (s *Service) List(ctx context.Context) ([]store.Movie, error) {
	movies, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	store.SortByPosition(movies)
	return movies, nil
}

// Get returns a movie by ID.
func (s *Service) Get(ctx context.Context, id string) (store.Movie, error) {
	return s.store.Get(ctx, id)
}

// Resolve finds the movie a reference points to.
// See ParseRef for the reference syntax.
func (s *Service) Resolve(ctx context.Context, raw string) (store.Movie, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return store.Movie{}, err
	}
	if !ref.ByPosition {
		return s.store.Get(ctx, ref.ID)
	}

	movies, err := s.store.ListAll(ctx)
	if err != nil {
		return store.Movie{}, err
	}
	var matches []store.Movie
	for _, m := range movies {
		if m.Position == ref.Position {
			matches = append(matches, m)
		}
	}
	switch len(matches) {
	case 0:
		return store.Movie{}, fmt.Errorf("no movie at position %d: %w", ref.Position, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return store.Movie{}, fmt.Errorf("%w: %d movies at position %d", ErrAmbiguous, len(matches), ref.Position)
	}
}

// Add inserts a new movie at d.Position, shifting the movies at or after
// that position forward. If the shift fails the movie is not created.
func (s *Service) Add(ctx context.Context, d Draft) (store.Movie, error) {
	if err := d.Validate(); err != nil {
		return store.Movie{}, err
	}

	var created store.Movie
	err := s.withLock(ctx, func() error {
		if _, err := s.rx.Reindex(ctx, d.Position, ""); err != nil {
			return fmt.Errorf("failed to clear position %d: %w", d.Position, err)
		}

		m, err := s.store.Create(ctx, store.Movie{
			Title:       d.Title,
			Link:        d.Link,
			Image:       d.Image,
			Position:    d.Position,
			CreatedDate: s.now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			s.logger.Warn("position cleared but movie not created",
				zap.Int("position", d.Position), zap.Error(err))
			return err
		}
		created = m
		return nil
	})
	if err != nil {
		return store.Movie{}, err
	}

	s.logger.Debug("movie added", zap.String("id", created.ID), zap.Int("position", created.Position))
	return created, nil
}

// Move places an existing movie at pos, shifting the other movies at or
// after pos forward. Moving a movie to its current position is a no-op.
func (s *Service) Move(ctx context.Context, id string, pos int) (store.Movie, error) {
	if err := ValidatePosition(pos); err != nil {
		return store.Movie{}, err
	}

	var moved store.Movie
	err := s.withLock(ctx, func() error {
		m, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if m.Position == pos {
			moved = m
			return nil
		}

		if _, err := s.rx.Reindex(ctx, pos, id); err != nil {
			return fmt.Errorf("failed to clear position %d: %w", pos, err)
		}
		if err := s.store.UpdatePosition(ctx, id, pos); err != nil {
			return err
		}
		s.logger.Debug("movie moved", zap.String("id", id), zap.Int("from", m.Position), zap.Int("to", pos))
		m.Position = pos
		moved = m
		return nil
	})
	return moved, err
}

// Edit changes the payload of a movie. The creation date and position are
// preserved.
func (s *Service) Edit(ctx context.Context, id string, p Patch) (store.Movie, error) {
	if err := p.Validate(); err != nil {
		return store.Movie{}, err
	}

	m, err := s.store.Get(ctx, id)
	if err != nil {
		return store.Movie{}, err
	}
	if p.Empty() {
		return m, nil
	}
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.Link != nil {
		m.Link = *p.Link
	}
	if p.Image != nil {
		m.Image = *p.Image
	}
	if err := s.store.Update(ctx, m); err != nil {
		return store.Movie{}, err
	}
	return m, nil
}

// Delete removes a movie. The position it held is left empty; see Compact.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Reindex vacates pos without claiming it.
func (s *Service) Reindex(ctx context.Context, pos int, excludeID string) (reindex.Result, error) {
	var res reindex.Result
	err := s.withLock(ctx, func() error {
		var err error
		res, err = s.rx.Reindex(ctx, pos, excludeID)
		return err
	})
	return res, err
}

// Resume finishes a reindex or compaction that failed part way through.
func (s *Service) Resume(ctx context.Context, werr *reindex.WriteError) (reindex.Result, error) {
	var res reindex.Result
	err := s.withLock(ctx, func() error {
		var err error
		res, err = s.rx.Resume(ctx, werr)
		return err
	})
	return res, err
}

// Compact renumbers all movies to 1..N in display order.
func (s *Service) Compact(ctx context.Context) (reindex.Result, error) {
	var res reindex.Result
	err := s.withLock(ctx, func() error {
		var err error
		res, err = s.rx.Compact(ctx)
		return err
	})
	return res, err
}

// Check audits the current positions.
func (s *Service) Check(ctx context.Context) (reindex.Report, error) {
	movies, err := s.store.ListAll(ctx)
	if err != nil {
		return reindex.Report{}, err
	}
	return reindex.Audit(movies), nil
}

func (s *Service) withLock(ctx context.Context, fn func() error) error {
	if err := s.locker.Lock(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.locker.Unlock(); err != nil {
			s.logger.Warn("failed to release lock", zap.Error(err))
		}
	}()
	return fn()
}
