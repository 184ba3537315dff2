package clock

import "time"

// Clock supplies the current instant, always in UTC.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

// Fixed always returns t. Handy for tests around past-slot checks.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f).UTC() }
