// Package premium upgrades application users to the premium plan after a
// successful payment. The user records themselves live in an external
// UserStore; this package only decides what is written and how each outcome
// is classified.
package premium

import (
	"context"
	"fmt"
	"strings"
)

// Upgrader applies PremiumUpgrade to user records through a UserStore.
type Upgrader struct {
	store UserStore
}

// NewUpgrader creates an Upgrader backed by store.
func NewUpgrader(store UserStore) (*Upgrader, error) {
	if store == nil {
		return nil, ErrStoreNotConfigured
	}
	return &Upgrader{store: store}, nil
}

// Upgrade marks the user identified by email as premium.
//
// The store is called exactly once per invocation; replays are not filtered,
// since writing fixed values is idempotent at the store. The returned Result is
// always populated. A non-nil error means the store failed (OutcomeFailed).
func (u *Upgrader) Upgrade(ctx context.Context, email string) (Result, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return Result{Outcome: OutcomeFailed}, ErrEmailUnresolved
	}

	rows, err := u.store.UpgradeUser(ctx, email, PremiumUpgrade())
	if err != nil {
		return Result{Email: email, Outcome: OutcomeFailed}, fmt.Errorf("failed to upgrade user: %w", err)
	}

	result := Result{Email: email, RowsAffected: rows, Outcome: OutcomeUpgraded}
	if rows == 0 {
		result.Outcome = OutcomeNoUser
	}
	return result, nil
}
