package services

import (
	"context"
	"errors"
	"time"

	"github.com/clantools/bingo-system/models"
	"github.com/clantools/bingo-system/repositories"
)

// SignupService handles roster mutations driven by join/leave reactions on
// the signup post. Joins and leaves are independent concurrent signals; the
// storage uniqueness rule makes duplicate joins no-ops.
type SignupService struct {
	eventRepo  repositories.EventRepository
	signupRepo repositories.SignupRepository
	now        func() time.Time
}

func NewSignupService(eventRepo repositories.EventRepository, signupRepo repositories.SignupRepository, now func() time.Time) *SignupService {
	if now == nil {
		now = time.Now
	}
	return &SignupService{eventRepo: eventRepo, signupRepo: signupRepo, now: now}
}

func (s *SignupService) activeEvent(ctx context.Context, groupID int64) (*models.Event, error) {
	event, err := s.eventRepo.GetActiveByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrEventNotFound) {
			return nil, ErrNoActiveEvent
		}
		return nil, err
	}
	return event, nil
}

// Join adds the user to the active event's roster.
func (s *SignupService) Join(ctx context.Context, groupID, userID int64) error {
	event, err := s.activeEvent(ctx, groupID)
	if err != nil {
		return err
	}
	return s.signupRepo.Add(ctx, nil, event.ID, userID, s.now())
}

// Leave removes the user from the active event's roster. Leaving without
// having joined is a no-op.
func (s *SignupService) Leave(ctx context.Context, groupID, userID int64) error {
	event, err := s.activeEvent(ctx, groupID)
	if err != nil {
		return err
	}
	return s.signupRepo.Remove(ctx, nil, event.ID, userID)
}

// Roster lists the current signups of the active event.
func (s *SignupService) Roster(ctx context.Context, groupID int64) ([]models.Signup, error) {
	event, err := s.activeEvent(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return s.signupRepo.List(ctx, event.ID)
}
