// guard/requestid.go
package guard

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// NewRequestID returns a per-attempt request identifier: a unix-millisecond
// prefix (keeps ids roughly sortable in logs) plus an 8-byte random hex
// suffix. Collisions within a session are not expected; the guard's replay
// set treats any collision as a duplicate and rejects it, which is the safe
// direction.
func NewRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the platform is broken; fall back to the
		// clock alone rather than failing a submission over an id.
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + hex.EncodeToString(b)
}
