package app

import (
	"crypto/rand"

	"github.com/google/uuid"
)

func newReference() string {
	return uuid.NewString()
}

// ticketAlphabet avoids characters easily confused at a gate (0/O, 1/I/L).
const ticketAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// newTicketCode returns a human-typeable code like "X7Q2-M4KD-9TRB". With 12
// symbols over a 31-character alphabet collisions are vanishingly rare; the
// storage layer still enforces uniqueness and the caller retries on conflict.
func newTicketCode() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is unrecoverable for code generation.
		panic(err)
	}
	code := make([]byte, 0, 14)
	for i, b := range buf {
		if i > 0 && i%4 == 0 {
			code = append(code, '-')
		}
		code = append(code, ticketAlphabet[int(b)%len(ticketAlphabet)])
	}
	return string(code)
}
