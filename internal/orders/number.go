package orders

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NewOrderNumber builds the public order identifier, e.g. "DT-20260901-4821".
// The suffix is random, so callers retry on a duplicate rather than
// coordinating a per-day sequence.
func NewOrderNumber(now time.Time) string {
	var buf [2]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to the
		// clock so settlement does not stop if it somehow does.
		return fmt.Sprintf("DT-%s-%04d", now.UTC().Format("20060102"), now.UnixNano()%10000)
	}
	suffix := binary.BigEndian.Uint16(buf[:]) % 10000
	return fmt.Sprintf("DT-%s-%04d", now.UTC().Format("20060102"), suffix)
}
