package score

import "time"

// Wait rewards longer-waiting recipients with a monotonic step function of
// time since registration.
func Wait(registeredAt, now time.Time) float64 {
	waited := now.Sub(registeredAt)
	switch {
	case waited < 7*24*time.Hour:
		return 20
	case waited < 30*24*time.Hour:
		return 40
	case waited < 90*24*time.Hour:
		return 55
	case waited < 180*24*time.Hour:
		return 70
	case waited < 365*24*time.Hour:
		return 85
	default:
		return 100
	}
}
