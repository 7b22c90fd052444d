// Package simclock provides the logical simulation time and the clock that
// owns the global "now" of a run.
package simclock

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// ErrBackward is returned when the clock is asked to move to an earlier instant.
var ErrBackward = errors.New("simclock: time cannot move backward")

// Time is an instant of simulated time in milliseconds since the Unix epoch.
// The zero value is used as "unset" by optional timestamps.
type Time int64

// FromTime converts a wall-clock instant.
func FromTime(t time.Time) Time { return Time(t.UnixMilli()) }

// Add returns t shifted by d, truncated to milliseconds.
func (t Time) Add(d time.Duration) Time { return t + Time(d.Milliseconds()) }

// Sub returns the duration t-u.
func (t Time) Sub(u Time) time.Duration { return time.Duration(t-u) * time.Millisecond }

func (t Time) Before(u Time) bool { return t < u }
func (t Time) After(u Time) bool  { return t > u }
func (t Time) IsZero() bool       { return t == 0 }
func (t Time) Millis() int64      { return int64(t) }

// UTC returns the instant as a time.Time in UTC.
func (t Time) UTC() time.Time { return time.UnixMilli(int64(t)).UTC() }

func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02T15:04:05.000")
}

// MarshalText renders the time in the String layout so records stay readable.
func (t Time) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// UnmarshalText accepts every layout understood by Parse.
func (t *Time) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*t = 0
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Min returns the earlier of two instants.
func Min(a, b Time) Time {
	if a < b {
		return a
	}
	return b
}

// Max returns the later of two instants.
func Max(a, b Time) Time {
	if a > b {
		return a
	}
	return b
}

var layouts = []string{
	"2006-01-02T15:04:05.000",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02_15:04",
	"2006-01-02 15:04",
}

// Parse reads a UTC timestamp in one of the supported layouts.
func Parse(s string) (Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range layouts {
		if tm, err := time.Parse(l, s); err == nil {
			return FromTime(tm), nil
		}
	}
	return 0, fmt.Errorf("simclock: unrecognised time %q", s)
}

// Source exposes the current simulated time.
type Source interface {
	Now() Time
}

// Clock is the single source of truth for "now". Reads are safe from any
// goroutine; only the event loop advances it.
type Clock struct {
	now   atomic.Int64
	start atomic.Int64
}

// New returns a clock positioned at start.
func New(start Time) *Clock {
	c := &Clock{}
	c.now.Store(int64(start))
	c.start.Store(int64(start))
	return c
}

func (c *Clock) Now() Time { return Time(c.now.Load()) }

// Start returns the instant the run started at.
func (c *Clock) Start() Time { return Time(c.start.Load()) }

// Reset positions the clock and the start marker at t. It is used once when a
// run is initialised.
func (c *Clock) Reset(t Time) {
	c.now.Store(int64(t))
	c.start.Store(int64(t))
}

// Advance moves the clock forward to t.
func (c *Clock) Advance(t Time) error {
	for {
		cur := c.now.Load()
		if int64(t) < cur {
			return fmt.Errorf("%w: now=%s target=%s", ErrBackward, Time(cur), t)
		}
		if c.now.CompareAndSwap(cur, int64(t)) {
			return nil
		}
	}
}
