package users

import (
	"context"
	"testing"
)

type countingRepo struct {
	*MemoryRepo
	touches int
}

func (r *countingRepo) Touch(ctx context.Context, user User) (User, error) {
	r.touches++
	return r.MemoryRepo.Touch(ctx, user)
}

func TestEnsureCreatesGuestOnce(t *testing.T) {
	repo := &countingRepo{MemoryRepo: NewMemoryRepo()}
	svc := NewService(repo)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.Ensure(ctx, "guest:abc", ""); err != nil {
			t.Fatalf("Ensure: %v", err)
		}
	}
	if repo.touches != 1 {
		t.Fatalf("expected a single repo touch inside the interval, got %d", repo.touches)
	}

	user, err := svc.GetByID(ctx, "guest:abc")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !user.IsGuest {
		t.Fatalf("expected guest flag for guest principal")
	}
	if user.CreatedAt.IsZero() || user.LastSeenAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
}

func TestEnsureRejectsEmptyID(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if err := svc.Ensure(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
