package services

import "fmt"

// Kind groups errors by how they are reported to clients.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindAuth
	KindGeneration
	KindTimeout
)

// Error is a client-facing failure with a machine-readable code. Two errors
// match under errors.Is when their codes are equal.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Retryable reports whether the client may retry the same request.
func (e *Error) Retryable() bool {
	return e.Kind == KindTimeout
}

var (
	ErrInvalidRequest  = &Error{KindValidation, "INVALID_REQUEST", "Invalid request"}
	ErrEmailExists     = &Error{KindValidation, "EMAIL_EXISTS", "This email is already registered"}
	ErrUsernameExists  = &Error{KindValidation, "USERNAME_EXISTS", "This username is already taken"}
	ErrEmailNotFound   = &Error{KindValidation, "EMAIL_NOT_FOUND", "This email is not registered"}
	ErrInvalidPassword = &Error{KindValidation, "INVALID_PASSWORD", "Incorrect password"}
	ErrInvalidProfile  = &Error{KindValidation, "INVALID_PROFILE", "Invalid financial profile"}

	ErrInvalidGoalType   = &Error{KindValidation, "INVALID_GOAL_TYPE", "Goal type must be one of retirement, homePurchase, education, other"}
	ErrInvalidAmount     = &Error{KindValidation, "INVALID_AMOUNT", "Target amount must be greater than zero and current amount must not be negative"}
	ErrInvalidTargetDate = &Error{KindValidation, "INVALID_TARGET_DATE", "Target date must be a date (YYYY-MM-DD) or an RFC 3339 timestamp"}
	ErrEmptyMessage      = &Error{KindValidation, "EMPTY_MESSAGE", "Message cannot be empty"}
	ErrInvalidSnapshot   = &Error{KindValidation, "INVALID_SNAPSHOT", "Invalid financial snapshot"}

	ErrUserNotFound     = &Error{KindNotFound, "USER_NOT_FOUND", "User not found"}
	ErrGoalNotFound     = &Error{KindNotFound, "GOAL_NOT_FOUND", "Goal not found"}
	ErrSnapshotNotFound = &Error{KindNotFound, "SNAPSHOT_NOT_FOUND", "No financial snapshot found"}

	ErrMissingToken = &Error{KindAuth, "MISSING_TOKEN", "Missing authentication token"}
	ErrInvalidToken = &Error{KindAuth, "INVALID_TOKEN", "Invalid authentication token"}
	ErrTokenExpired = &Error{KindAuth, "TOKEN_EXPIRED", "Authentication token expired"}

	ErrGenerationFailed = &Error{KindGeneration, "GENERATION_FAILED", "The advice service could not produce a response"}
	ErrGeneratorTimeout = &Error{KindTimeout, "GENERATOR_TIMEOUT", "The advice service took too long to respond"}
)

// withMessage returns a copy of base carrying a more specific message.
func withMessage(base *Error, msg string) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: msg}
}
