// Package memory provides an in-memory implementation of the premium.UserStore interface.
// This implementation is primarily intended for testing and development.
package memory

import (
	"context"
	"sync"

	"github.com/mihaimyh/premiumgate/pkg/premium"
)

// User is a user record held in memory
type User struct {
	Email        string
	IsPremium    bool
	StorageLimit int64
}

// Storage implements premium.UserStore using in-memory maps
type Storage struct {
	mu           sync.RWMutex
	users        map[string]*User
	upgradeCalls []string
}

var _ premium.UserStore = (*Storage)(nil)

// New creates a new in-memory storage adapter
func New() *Storage {
	return &Storage{
		users: make(map[string]*User),
	}
}

// AddUser inserts or replaces a user record
func (s *Storage) AddUser(user User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutations
	userCopy := user
	s.users[user.Email] = &userCopy
}

// User returns a copy of the record stored for email
func (s *Storage) User(email string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[email]
	if !ok {
		return User{}, false
	}
	return *user, true
}

// UpgradeCalls returns the emails passed to UpgradeUser, in call order
func (s *Storage) UpgradeCalls() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.upgradeCalls...)
}

// UpgradeUser implements premium.UserStore
func (s *Storage) UpgradeUser(ctx context.Context, email string, upgrade premium.UserUpgrade) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.upgradeCalls = append(s.upgradeCalls, email)
	user, ok := s.users[email]
	if !ok {
		return 0, nil
	}
	user.IsPremium = upgrade.IsPremium
	user.StorageLimit = upgrade.StorageLimit
	return 1, nil
}
