package service

import (
	"context"
	"errors"
	"sync"

	"bothub/internal/models"
)

// fakeUserRepo is an in-memory UserRepository for service tests.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
	subs  map[uint]*models.Subscription

	usageWrites int
	failUpdate  bool
	failSub     bool
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{
		users: make(map[uint]*models.User),
		subs:  make(map[uint]*models.Subscription),
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	clone := *u
	if sub, ok := r.subs[id]; ok {
		subClone := *sub
		clone.Subscription = &subClone
	}
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = uint(len(r.users) + 1)
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return models.NewInternalError(errors.New("update failed"))
	}
	clone := *user
	// Mirror the real repository: profile saves never write usage columns.
	if existing, ok := r.users[user.ID]; ok {
		clone.Usage = existing.Usage
	}
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) UpdateUsage(_ context.Context, userID uint, usage models.UsageCounters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return models.NewNotFoundError("User", userID)
	}
	u.Usage = usage
	r.usageWrites++
	return nil
}

func (r *fakeUserRepo) SaveSubscription(_ context.Context, sub *models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSub {
		return models.NewInternalError(errors.New("subscription write failed"))
	}
	clone := *sub
	r.subs[sub.UserID] = &clone
	return nil
}
