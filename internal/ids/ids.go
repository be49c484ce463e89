package ids

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// New returns a random identifier for persisted records.
func New() string {
	return uuid.NewString()
}

// NewTokenID returns a time-sortable identifier used as a token jti.
func NewTokenID() string {
	return ksuid.New().String()
}
