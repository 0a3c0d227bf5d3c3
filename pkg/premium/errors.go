package premium

import "errors"

var (
	// ErrEmailUnresolved is returned when no contact email could be derived for a payment
	ErrEmailUnresolved = errors.New("customer email could not be resolved")

	// ErrStoreNotConfigured is returned when an Upgrader is built without a UserStore
	ErrStoreNotConfigured = errors.New("user store not configured")

	// ErrStoreUnavailable is returned by stores when the backing system cannot be reached
	ErrStoreUnavailable = errors.New("user store unavailable")
)
