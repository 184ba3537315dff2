package models

import "time"

// Overlaps reports whether the half-open windows [startA, endA) and
// [startB, endB) intersect. Touching endpoints do not overlap.
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && endA.After(startB)
}

type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}
