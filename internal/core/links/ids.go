package links

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator produces unique item identifiers. Uniqueness is a precondition of
// the store: two items must never share an id.
type Generator func() string

// UUIDv4 returns a Generator producing random UUID v4 strings.
func UUIDv4() Generator {
	return func() string {
		return uuid.New().String()
	}
}

var timeSeq atomic.Int64

// TimeBased returns a Generator deriving ids from the current time in
// milliseconds. Ids can collide across processes saving in the same
// millisecond; a process-local sequence suffix keeps them unique within one
// process.
func TimeBased(now func() time.Time) Generator {
	return func() string {
		seq := timeSeq.Add(1)
		return strconv.FormatInt(now().UnixMilli(), 10) + "-" + strconv.FormatInt(seq, 10)
	}
}

// Strong returns a Generator producing time-ordered RFC 9562 UUID v7 strings.
// It falls back to TimeBased when the random source fails.
func Strong() Generator {
	fallback := TimeBased(time.Now)
	return func() string {
		id, err := uuid.NewV7()
		if err != nil {
			return fallback()
		}
		return id.String()
	}
}
