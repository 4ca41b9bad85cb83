package domain

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDFunc generates opaque unique ids for sections and nodes.
type IDFunc func() string

// NewID returns a time-ordered random id (UUIDv7). Monotonicity is not
// relied upon; only uniqueness is.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// SequentialIDs returns a deterministic generator ("prefix-1", "prefix-2", …)
// for tests and fixtures.
func SequentialIDs(prefix string) IDFunc {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}
