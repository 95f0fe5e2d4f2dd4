// Package jobopt holds the option value types persisted on every task record.
// They live here so the root package and the worker agree on one wire format.
package jobopt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

const (
	// BackoffExponential doubles the delay after every failed attempt.
	BackoffExponential = "exponential"
	// BackoffFixed waits the same delay before every retry.
	BackoffFixed = "fixed"
)

// maxBackoffShift caps the exponent so delay*2^n cannot overflow time.Duration.
const maxBackoffShift = 20

// Backoff describes how long a failed task waits before its next attempt.
// Delay is expressed in milliseconds.
type Backoff struct {
	Type  string `json:"type"`
	Delay int64  `json:"delay"`
}

// Next returns the wait before the retry that follows attemptsMade failed attempts.
// Exponential backoff yields Delay * 2^(attemptsMade-1).
func (b *Backoff) Next(attemptsMade int) time.Duration {
	if b == nil || b.Delay <= 0 {
		return 0
	}
	if b.Delay > int64(math.MaxInt64/time.Millisecond) {
		return time.Duration(math.MaxInt64)
	}
	base := time.Duration(b.Delay) * time.Millisecond
	if b.Type == BackoffFixed {
		return base
	}
	shift := attemptsMade - 1
	if shift < 0 {
		shift = 0
	}
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	if base > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return base << shift
}

// Retention bounds how many finished records of one outcome are kept.
// On the wire it is true (keep all), false (keep none) or N (keep the newest N).
type Retention struct {
	All  bool
	Keep int
}

// KeepAll retains every finished record.
func KeepAll() Retention { return Retention{All: true} }

// KeepNone drops finished records immediately.
func KeepNone() Retention { return Retention{} }

// KeepLast retains the newest n finished records.
func KeepLast(n int) Retention {
	if n < 0 {
		n = 0
	}
	return Retention{Keep: n}
}

// Limit returns the number of newest records to keep, or -1 when unbounded.
func (r Retention) Limit() int64 {
	if r.All {
		return -1
	}
	if r.Keep < 0 {
		return 0
	}
	return int64(r.Keep)
}

// MarshalJSON implements json.Marshaler.
func (r Retention) MarshalJSON() ([]byte, error) {
	switch {
	case r.All:
		return []byte("true"), nil
	case r.Keep <= 0:
		return []byte("false"), nil
	default:
		return json.Marshal(r.Keep)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Retention) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "null":
		return nil
	case "true":
		*r = KeepAll()
		return nil
	case "false":
		*r = KeepNone()
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("retention must be a bool or a number: %w", err)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return fmt.Errorf("retention must be finite")
	}
	*r = KeepLast(int(math.Floor(n)))
	return nil
}
