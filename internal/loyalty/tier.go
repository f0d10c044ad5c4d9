package loyalty

import "github.com/greenbasket/groupbuy-service/internal/model"

// CalculateTier derives the loyalty tier from lifetime pickup reliability.
// It is a pure function of the two counters and never of the points
// balance. Three or more no-shows restrict the account regardless of how
// many pickups it has; otherwise the ladder is evaluated on pickup rate
// combined with a minimum absolute pickup count, highest tier first.
func CalculateTier(pickupCount, noShowCount int) model.LoyaltyTier {
	total := pickupCount + noShowCount
	if total == 0 {
		return model.TierSprout
	}
	if noShowCount >= 3 {
		return model.TierRestricted
	}

	rate := float64(pickupCount) / float64(total) * 100

	switch {
	case rate >= 98 && pickupCount >= 50:
		return model.TierLegend
	case rate >= 95 && pickupCount >= 20:
		return model.TierKing
	case rate >= 90 && pickupCount >= 5:
		return model.TierFairy
	case rate >= 80:
		return model.TierSprout
	default:
		return model.TierCaution
	}
}
