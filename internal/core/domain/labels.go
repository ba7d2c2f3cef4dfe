package domain

import (
	"fmt"
	"time"
)

// Display placeholders for values that are legitimately absent. They are only
// produced by the label helpers below.
const (
	UnknownDistanceLabel  = "N/A"
	UnknownCountdownLabel = "--"
)

// DistanceLabel renders a computed distance in kilometers.
func DistanceLabel(km *float64) string {
	if km == nil || !isFinite(*km) {
		return UnknownDistanceLabel
	}
	if *km < 1 {
		return fmt.Sprintf("%.0f m", *km*1000)
	}
	return fmt.Sprintf("%.1f km", *km)
}

// CountdownLabel renders the seconds left until deadline.
func CountdownLabel(deadline *time.Time, now time.Time) string {
	if deadline == nil || deadline.IsZero() {
		return UnknownCountdownLabel
	}
	left := deadline.Sub(now)
	if left <= 0 {
		return "0s"
	}
	return fmt.Sprintf("%ds", int(left.Round(time.Second)/time.Second))
}
