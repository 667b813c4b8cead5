package model

import "errors"

var (
	// ErrMissingIdentity is returned when a connecting principal lacks the
	// required userId or employeeId claims.
	ErrMissingIdentity = errors.New("userId and employeeId are required")

	// ErrConnectionNotFound is returned when operating on a connection that
	// is not (or no longer) registered.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrAlreadyExists is returned when a connection id is registered while
	// still present in the registry.
	ErrAlreadyExists = errors.New("connection already registered")

	// ErrAccessDenied is returned when a group join or an administrative
	// query is not permitted for the caller's roles.
	ErrAccessDenied = errors.New("access denied")

	// ErrEmptyGroupName is returned for join/leave requests with an empty or
	// whitespace-only group name.
	ErrEmptyGroupName = errors.New("group name is required")

	// ErrMessageTooLong is returned when a free-text payload exceeds the
	// configured maximum length.
	ErrMessageTooLong = errors.New("message exceeds maximum length")

	// ErrEmptyMessage is returned when a free-text payload is empty.
	ErrEmptyMessage = errors.New("message is required")

	// ErrInvalidAlertID is returned when an alert identifier is not positive.
	ErrInvalidAlertID = errors.New("alert id must be positive")

	// ErrUnknownTarget is returned for an unrecognized directed-message
	// target kind.
	ErrUnknownTarget = errors.New("unknown target kind")
)
