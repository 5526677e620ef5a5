package chat

import "errors"

var (
	ErrEmptyMessage    = errors.New("message is required")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrSessionNotFound = errors.New("chat session not found")
	// ErrSessionOwned is returned when a session id is already owned by a
	// different user.
	ErrSessionOwned = errors.New("chat session belongs to another user")
	ErrJobNotFound  = errors.New("chat job not found")
	// ErrAsyncDisabled means no job publisher was wired in.
	ErrAsyncDisabled = errors.New("async chat is not enabled")
	// ErrIdempotencyNeedsOwner rejects an idempotency key from a caller with
	// neither a user nor a session id, since the job could never be found again.
	ErrIdempotencyNeedsOwner = errors.New("idempotency key requires a sessionId or a signed-in user")
)
