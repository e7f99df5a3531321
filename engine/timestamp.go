package engine

import (
	"time"
)

// NewTimestamp builds a logical timestamp from wall-clock time and the
// originating endpoint id.
func NewTimestamp(t time.Time, id [16]byte) Timestamp {
	secs := uint64(t.Unix())
	// Nanoseconds scaled into the 32-bit NTP fraction.
	frac := (uint64(t.Nanosecond()) << 32) / uint64(time.Second)
	return Timestamp{
		NTP64: secs<<32 | (frac & 0xffffffff),
		ID:    id,
	}
}

// Time converts the NTP64 value back to wall-clock time.
func (ts Timestamp) Time() time.Time {
	secs := int64(ts.NTP64 >> 32)
	frac := ts.NTP64 & 0xffffffff
	nanos := int64((frac * uint64(time.Second)) >> 32)
	return time.Unix(secs, nanos)
}
