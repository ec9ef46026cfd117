package referral

import "errors"

// Business-rule failures returned to callers. The admin surface maps these
// to 4xx responses; the storefront degrades to "no referral applied".
var (
	// ErrAlreadyLocked means the customer is permanently bound to a
	// referrer and only an admin reassignment may change the binding.
	ErrAlreadyLocked = errors.New("customer referral is already locked")

	// ErrInvalidCode means no active member owns the referral code.
	ErrInvalidCode = errors.New("referral code is invalid or inactive")

	// ErrSelfReferral means the code belongs to the purchasing customer
	// and self-referral blocking is enabled.
	ErrSelfReferral = errors.New("self-referral is not allowed")

	// ErrEventNotFound means no matching non-reversed referral event
	// exists for the requested order or event id.
	ErrEventNotFound = errors.New("referral event not found")

	// ErrInvalidTransition means the event is not in a status that allows
	// the requested transition.
	ErrInvalidTransition = errors.New("invalid referral event status transition")

	// ErrBelowPayoutThreshold means the batch total does not reach the
	// configured minimum payout amount.
	ErrBelowPayoutThreshold = errors.New("unpaid commission is below the payout threshold")

	// ErrMemberNotFound means the referenced member does not exist.
	ErrMemberNotFound = errors.New("referral member not found")

	// ErrCustomerNotFound means the referenced customer does not exist.
	ErrCustomerNotFound = errors.New("customer not found")
)

// Infrastructure failures.
var (
	// ErrConcurrencyConflict is a read-modify-write collision on a member
	// record. The engine retries a bounded number of times before
	// surfacing it.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	// ErrDuplicateOrder is raised by the event store when an insert hits
	// the unique order_id constraint. The engine treats it as "already
	// processed" and returns the existing event.
	ErrDuplicateOrder = errors.New("a referral event already exists for this order")

	// ErrConfiguration is fatal: the tier or rank tables are malformed
	// and the engine must not start.
	ErrConfiguration = errors.New("referral configuration is invalid")
)
