package score

import "organlink/internal/registry/models"

// Urgency maps the recipient's urgency tier to a sub-score. The mapping is
// monotonic: a higher tier never scores lower.
func Urgency(urgency models.Urgency) float64 {
	switch urgency {
	case models.UrgencyCritical:
		return 100
	case models.UrgencyHigh:
		return 75
	case models.UrgencyMedium:
		return 50
	case models.UrgencyLow:
		return 25
	default:
		return 25
	}
}
