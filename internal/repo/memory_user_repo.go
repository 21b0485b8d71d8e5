package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/xxxsen/dailypen/internal/model"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

// MemoryUserRepo is a process-local credential store for development and tests.
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*model.User
	byEmail map[string]string
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return appErr.ErrConflict
	}
	if _, ok := r.byID[user.ID]; ok {
		return appErr.ErrConflict
	}
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	return r.copyLocked(id)
}

func (r *MemoryUserRepo) GetByID(_ context.Context, userID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyLocked(userID)
}

// ListUsers returns every account, newest first.
func (r *MemoryUserRepo) ListUsers(_ context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]*model.User, 0, len(r.byID))
	for _, user := range r.byID {
		out := *user
		users = append(users, &out)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Ctime != users[j].Ctime {
			return users[i].Ctime > users[j].Ctime
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (r *MemoryUserRepo) UpdateName(_ context.Context, userID, name string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return appErr.ErrNotFound
	}
	user.Name = name
	user.Mtime = mtime
	return nil
}

func (r *MemoryUserRepo) DeleteUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok {
		return appErr.ErrNotFound
	}
	delete(r.byEmail, user.Email)
	delete(r.byID, userID)
	return nil
}

func (r *MemoryUserRepo) copyLocked(id string) (*model.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *MemoryUserRepo) SetOTP(_ context.Context, userID, prevHash, otpHash string, expiresAt, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok || user.OtpHash != prevHash {
		return appErr.ErrConflict
	}
	user.OtpHash = otpHash
	user.OtpExpiresAt = expiresAt
	user.Mtime = mtime
	return nil
}

func (r *MemoryUserRepo) ClearOTP(_ context.Context, userID, otpHash string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[userID]
	if !ok || user.OtpHash != otpHash {
		return appErr.ErrConflict
	}
	user.OtpHash = ""
	user.OtpExpiresAt = 0
	user.Mtime = mtime
	return nil
}
