package utils

import (
	"fmt"
	"time"
)

// ElapsedSeconds returns the wall-clock seconds since start as a float
func ElapsedSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// SecondsToDuration converts fractional seconds to a time.Duration
func SecondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// FormatSeconds formats fractional seconds the way progress lines print them
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2f seconds", seconds)
}
