package users

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("user not found")

type Repo interface {
	// Touch creates the user on first sight and bumps LastSeenAt otherwise.
	Touch(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
}
