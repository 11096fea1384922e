package model

import (
	"errors"
	"time"
)

// ErrInvalidInterval is returned by NewInterval when the end does not come
// strictly after the start.
var ErrInvalidInterval = errors.New("interval: end must be after start")

// Interval is a half-open date-time range [Start, End).  A stay that ends at
// the instant another begins does not overlap it, so a guest can check out
// the same morning the next one checks in.
type Interval struct {
	Start time.Time `json:"startDate"`
	End   time.Time `json:"endDate"`
}

// NewInterval builds an Interval normalised to UTC and rejects empty or
// inverted ranges.  The instant of each bound is preserved.
func NewInterval(start, end time.Time) (Interval, error) {
	iv := Interval{Start: start.UTC(), End: end.UTC()}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate reports ErrInvalidInterval unless Start < End and both are set.
func (iv Interval) Validate() error {
	if iv.Start.IsZero() || iv.End.IsZero() {
		return ErrInvalidInterval
	}
	if !iv.End.After(iv.Start) {
		return ErrInvalidInterval
	}
	return nil
}

// Overlaps is NOT (e1 <= s2 OR s1 >= e2), i.e. s1 < e2 AND s2 < e1.  Both
// intervals must be valid.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Nights counts whole 24h days between Start and End, truncating toward zero.
func (iv Interval) Nights() int64 {
	return int64(iv.End.Sub(iv.Start) / (24 * time.Hour))
}
