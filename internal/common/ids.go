package common

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewULID returns a time-ordered 26 character id. Jobs use it.
func NewULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// NewAnonymousSessionID is used when a chat arrives with neither a session id
// nor an authenticated user.
func NewAnonymousSessionID() string {
	return "anon_" + uuid.NewString()
}

func NewSessionID() string {
	return "sess_" + uuid.NewString()
}

func NewRequestID() string {
	return uuid.NewString()
}
