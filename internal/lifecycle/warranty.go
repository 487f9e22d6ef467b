// Package lifecycle holds the pure rules of the asset lifecycle: warranty
// classification, repair aggregation, the transition guard and the
// warranty sweep. Nothing in here touches storage or the clock.
package lifecycle

import (
	"time"

	"it-inventory-api/internal/models"
)

// Tier is the warranty urgency of an asset
type Tier string

const (
	TierNone     Tier = "none"
	TierGood     Tier = "good"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
	TierExpired  Tier = "expired"
)

// Both windows are inclusive.
const (
	CriticalWindowDays = 30
	WarningWindowDays  = 90
)

// Alerting reports whether the tier produces a warranty notification.
func (t Tier) Alerting() bool {
	return t == TierCritical || t == TierWarning || t == TierExpired
}

// ClassifyWarranty returns the tier of a warranty end date relative to now
// and the number of whole calendar days remaining (negative once expired).
// Assets without a warranty end date are TierNone with 0 days.
func ClassifyWarranty(warrantyEnd *models.Date, now time.Time) (Tier, int) {
	if warrantyEnd == nil || warrantyEnd.IsZero() {
		return TierNone, 0
	}

	days := models.DateOf(now).DaysUntil(*warrantyEnd)
	switch {
	case days < 0:
		return TierExpired, days
	case days <= CriticalWindowDays:
		return TierCritical, days
	case days <= WarningWindowDays:
		return TierWarning, days
	default:
		return TierGood, days
	}
}
