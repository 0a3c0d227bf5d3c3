package premium

import "context"

// PremiumStorageLimit is the storage quota granted to premium users, in bytes (5 GiB).
const PremiumStorageLimit int64 = 5 * 1024 * 1024 * 1024

// UserUpgrade is the set of user record fields written on a successful payment.
type UserUpgrade struct {
	IsPremium    bool  `json:"is_premium"`
	StorageLimit int64 `json:"storage_limit"`
}

// PremiumUpgrade returns the fixed upgrade applied to paying users.
func PremiumUpgrade() UserUpgrade {
	return UserUpgrade{
		IsPremium:    true,
		StorageLimit: PremiumStorageLimit,
	}
}

// UserStore is the external system of record for application users.
// Implementations update every record whose email matches and report how many matched.
// A store never creates users.
type UserStore interface {
	// UpgradeUser applies upgrade to the records keyed by email.
	// Returns the number of affected records; zero means no user matched.
	UpgradeUser(ctx context.Context, email string, upgrade UserUpgrade) (int64, error)
}

// Outcome classifies the result of an upgrade attempt
type Outcome string

const (
	// OutcomeUpgraded means at least one user record was updated
	OutcomeUpgraded Outcome = "upgraded"
	// OutcomeNoUser means the store accepted the update but no record matched
	OutcomeNoUser Outcome = "no_user"
	// OutcomeFailed means the store reported an error
	OutcomeFailed Outcome = "failed"
)

// Result describes a single upgrade attempt.
type Result struct {
	Email        string
	RowsAffected int64
	Outcome      Outcome
}
