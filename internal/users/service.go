package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// touchInterval limits LastSeenAt writes to one per principal per interval.
const touchInterval = 5 * time.Minute

type Service struct {
	Repo Repo
	seen *cache.Cache
}

func NewService(repo Repo) *Service {
	return &Service{
		Repo: repo,
		seen: cache.New(touchInterval, 2*touchInterval),
	}
}

// Ensure records the principal the first time it is seen and periodically afterwards.
func (s *Service) Ensure(ctx context.Context, userID, displayName string) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("user id is required")
	}
	if s.seen != nil {
		if _, ok := s.seen.Get(userID); ok {
			return nil
		}
	}
	if _, err := s.Repo.Touch(ctx, User{
		ID:          userID,
		DisplayName: strings.TrimSpace(displayName),
		IsGuest:     strings.HasPrefix(userID, "guest:"),
	}); err != nil {
		return err
	}
	if s.seen != nil {
		s.seen.SetDefault(userID, struct{}{})
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}
