package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Unambiguous alphabet for human-readable order numbers (no 0/O, 1/I).
const numberAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewOrderNumber produces an identifier like PH-20260831-K7P2QX. The date
// prefix keeps numbers sortable for staff; the random suffix keeps them
// unguessable. Uniqueness is enforced by the database, the caller retries
// on collision.
func NewOrderNumber(now time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(fmt.Sprintf("order number entropy: %v", err))
	}
	suffix := make([]byte, len(buf))
	for i, b := range buf {
		suffix[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return fmt.Sprintf("PH-%s-%s", now.Format("20060102"), suffix)
}
