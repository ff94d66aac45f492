package services

import "time"

// Clock is injected everywhere time is compared so expiry logic stays
// deterministic under test.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
