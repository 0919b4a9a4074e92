package domain

import "errors"

var (
	ErrInvalidInput = errors.New("invalid_input")

	ErrScheduleNotFound     = errors.New("schedule_not_found")
	ErrScheduleNotActive    = errors.New("schedule_not_active")
	ErrInsufficientCapacity = errors.New("insufficient_capacity")

	ErrTourNotFound    = errors.New("tour_not_found")
	ErrOrderNotFound   = errors.New("order_not_found")
	ErrItemNotFound    = errors.New("order_item_not_found")
	ErrPaymentNotFound = errors.New("payment_not_found")

	// ErrStateConflict is returned when a transition is requested from a
	// state that can never reach the target (e.g. paying an expired order).
	// Re-delivering the same transition to an order already in the target
	// state is a no-op, not this error.
	ErrStateConflict = errors.New("state_conflict")

	// ErrOrderNotPayable is returned when a payment intent is requested for
	// an order that is not currently RESERVED.
	ErrOrderNotPayable = errors.New("order_not_payable")

	// ErrVersionConflict signals an optimistic-lock miss on a payment row;
	// the caller saw a stale version and should reload before retrying.
	ErrVersionConflict = errors.New("payment_version_conflict")

	ErrMissingEventMetadata = errors.New("event_metadata_missing")
	ErrProviderFailure      = errors.New("payment_provider_failure")

	ErrNothingToSettle = errors.New("nothing_to_settle")
)
