// Package watchlist records which movies the demo user wants to watch.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/icco/mango/lib/validation"
	"github.com/icco/mango/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Action is a watchlist form action.
type Action string

const (
	ActionAdd    Action = "watch_add"
	ActionRemove Action = "watch_remove"
)

// Mutation is a parsed watchlist form post.
type Mutation struct {
	Action  Action `validate:"oneof=watch_add watch_remove"`
	UserID  uint   `validate:"gt=0"`
	MovieID int64  `validate:"gt=0"`
}

// ParseMutation builds a Mutation for the demo user from raw form values. An
// unparsable movie id becomes 0, which fails validation.
func ParseMutation(action, movieID string) Mutation {
	id, err := strconv.ParseInt(movieID, 10, 64)
	if err != nil {
		id = 0
	}
	return Mutation{
		Action:  Action(action),
		UserID:  models.DemoUserID,
		MovieID: id,
	}
}

// Valid reports whether m names a known action and a positive movie id.
func (m Mutation) Valid() bool {
	return validation.Struct(m) == nil
}

// Service applies watchlist mutations.
type Service struct {
	db     *gorm.DB
	logger *slog.Logger
}

// New returns a Service backed by db.
func New(db *gorm.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// EnsureDemoUser inserts the demo user unless a row with its id already
// exists. Existing rows are never modified.
func (s *Service) EnsureDemoUser(ctx context.Context) error {
	user := models.User{
		ID:         models.DemoUserID,
		Username:   models.DemoUsername,
		ProfilePic: models.DemoProfilePic,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&user).Error
	if err != nil {
		return fmt.Errorf("failed to ensure demo user: %w", err)
	}
	return nil
}

// Contains reports whether movieID is on userID's watchlist.
func (s *Service) Contains(ctx context.Context, userID, movieID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check watchlist: %w", err)
	}
	return count > 0, nil
}

// Add puts movieID on userID's watchlist. Adding a movie twice leaves one
// entry. A concurrent add that slips past the existence check hits the
// primary key and is dropped by ON CONFLICT DO NOTHING.
func (s *Service) Add(ctx context.Context, userID, movieID uint) error {
	exists, err := s.Contains(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	entry := models.WatchlistEntry{UserID: userID, MovieID: movieID}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to add to watchlist: %w", err)
	}
	return nil
}

// Remove deletes movieID from userID's watchlist. Removing a missing entry
// is not an error.
func (s *Service) Remove(ctx context.Context, userID, movieID uint) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Delete(&models.WatchlistEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove from watchlist: %w", err)
	}
	return nil
}

// IDs returns the set of movie ids on userID's watchlist.
func (s *Service) IDs(ctx context.Context, userID uint) (models.IDSet, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.WatchlistEntry{}).
		Where("user_id = ?", userID).
		Pluck("movie_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	return models.NewIDSet(ids...), nil
}

// ErrIgnored is returned by Apply for mutations that fail validation. Callers
// treat it as a no-op.
var ErrIgnored = errors.New("mutation ignored")

// Apply ensures the demo user exists and then performs m. Invalid mutations
// return ErrIgnored without touching the database.
func (s *Service) Apply(ctx context.Context, m Mutation) error {
	if err := validation.Struct(m); err != nil {
		s.logger.DebugContext(ctx, "Ignoring watchlist mutation", slog.Any("error", err))
		return fmt.Errorf("%w: %w", ErrIgnored, err)
	}

	if err := s.EnsureDemoUser(ctx); err != nil {
		return err
	}

	movieID := uint(m.MovieID)
	switch m.Action {
	case ActionAdd:
		return s.Add(ctx, m.UserID, movieID)
	case ActionRemove:
		return s.Remove(ctx, m.UserID, movieID)
	}
	return nil
}
