package models

import "errors"

// Sentinel errors for the business rules. The API layer maps these onto
// HTTP status codes; services wrap them with context via fmt.Errorf and %w.
var (
	// Not-found conditions
	ErrGroupNotFound        = errors.New("group not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrCycleNotFound        = errors.New("cycle not found")
	ErrLogNotFound          = errors.New("payment log not found")
	ErrNotificationNotFound = errors.New("notification not found")

	// Permission failures
	ErrPermissionDenied = errors.New("permission denied")

	// State conflicts
	ErrCycleAlreadyActive = errors.New("a cycle is already active for this group")
	ErrCycleNotActive     = errors.New("cycle is not active")
	ErrInvalidTransition  = errors.New("payment log is not in a valid state for this operation")
	ErrMemberNotLocked    = errors.New("member is not locked")
	ErrGroupArchived      = errors.New("group is archived")
	ErrAlreadyMember      = errors.New("user is already a member of this group")

	// Validation failures
	ErrInvalidDateRange  = errors.New("start date must be before due date")
	ErrInvalidInviteCode = errors.New("invalid invite code")

	// Soft rate-limit outcome for joins; reminder windows are reported as a
	// flag on the response, not an error
	ErrRateLimited = errors.New("too many attempts, try again later")
)
