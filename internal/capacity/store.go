// Package capacity holds the authoritative remaining-vacancy counters, keyed
// by product and experience day. The store is the only mutable shared
// resource in the hot path; every mutation is atomic with respect to other
// operations on the same key.
package capacity

import (
	"context"
	"errors"
)

// Key addresses one counter: a product on one experience day.
type Key struct {
	ProductID string
	Date      string // "2006-01-02"
}

func (k Key) String() string {
	return k.ProductID + ":" + k.Date
}

// ErrInsufficient is returned by Debit when the counter would go negative.
var ErrInsufficient = errors.New("insufficient vacancies")

// Store is a key-value vacancy counter with atomic debit/credit. A key that
// has never been touched reports ok=false from Vacancies; callers seed it
// with SetBaseline (product daily capacity, or a supplier push) before
// debiting.
type Store interface {
	// Vacancies returns the remaining counter for key. ok is false when the
	// key has no counter yet.
	Vacancies(ctx context.Context, key Key) (remaining int, ok bool, err error)
	// SetBaseline sets the counter to n, replacing any existing value.
	SetBaseline(ctx context.Context, key Key, n int) error
	// Debit atomically subtracts n, failing with ErrInsufficient when the
	// counter is unknown or would go below zero.
	Debit(ctx context.Context, key Key, n int) error
	// Credit atomically adds n back to an existing counter.
	Credit(ctx context.Context, key Key, n int) error
}
