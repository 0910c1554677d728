package ledger

import "time"

// Timestamp is the wall-clock representation exchanged with the ledger
// service: seconds and nanoseconds since the Unix epoch. Both directions are
// normalized to UTC.
type Timestamp struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanos"`
}

// NewTimestamp converts a time.Time to its wire form, normalizing to UTC.
func NewTimestamp(t time.Time) Timestamp {
	u := t.UTC()
	return Timestamp{
		Seconds: u.Unix(),
		Nanos:   int32(u.Nanosecond()),
	}
}

// Time converts the wire form back to a UTC time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}
