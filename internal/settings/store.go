package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budgetcare/internal/core"
	"budgetcare/internal/log"
)

// Repository persists profiles. LoadProfile returns core.ErrNotFound for a
// user who never saved one.
type Repository interface {
	LoadProfile(ctx context.Context, userID string) (Profile, error)
	SaveProfile(ctx context.Context, p Profile) error
}

// Store performs the explicit load and save round trips around Reduce.
type Store struct {
	repo Repository
	now  func() time.Time
}

func NewStore(repo Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Load returns the persisted profile, or a fresh one when none exists.
func (s *Store) Load(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, core.ErrEmptyUserID
	}
	p, err := s.repo.LoadProfile(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return New(userID), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}
	return Reduce(Profile{}, Loaded{Profile: p})
}

// Save validates and persists p when it has unsaved changes. It returns the
// state after the Saved action.
func (s *Store) Save(ctx context.Context, p Profile) (Profile, error) {
	if !p.Dirty {
		return p, nil
	}
	p = p.Sanitized()
	if err := p.Validate(); err != nil {
		return p, err
	}
	at := s.now().UTC()
	p.UpdatedAt = at
	if err := s.repo.SaveProfile(ctx, p); err != nil {
		return p, fmt.Errorf("save profile: %w", err)
	}
	slog.InfoContext(ctx, "Profile saved", log.FieldUserID, p.UserID)
	return Reduce(p, Saved{At: at})
}

// Update loads the profile, applies actions and saves the result.
func (s *Store) Update(ctx context.Context, userID string, actions ...Action) (Profile, error) {
	p, err := s.Load(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	p, err = ReduceAll(p, actions...)
	if err != nil {
		return p, err
	}
	return s.Save(ctx, p)
}
