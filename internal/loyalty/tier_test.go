package loyalty

import (
	"testing"

	"github.com/greenbasket/groupbuy-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCalculateTier(t *testing.T) {
	tests := []struct {
		name    string
		pickups int
		noShows int
		want    model.LoyaltyTier
	}{
		{"new account", 0, 0, model.TierSprout},
		{"three no-shows restrict", 100, 3, model.TierRestricted},
		{"two no-shows do not restrict", 0, 2, model.TierCaution},
		{"legend needs volume", 50, 1, model.TierLegend},
		{"high rate without volume is not legend", 10, 0, model.TierFairy},
		{"king at 95 percent with 20 pickups", 20, 1, model.TierKing},
		{"fairy at 90 percent with 5 pickups", 9, 1, model.TierFairy},
		{"sprout at 80 percent", 4, 1, model.TierSprout},
		{"caution below 80 percent", 3, 2, model.TierCaution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateTier(tt.pickups, tt.noShows))
		})
	}
}

func TestCalculateTierNeverPanicsOnZeroNoShows(t *testing.T) {
	assert.Equal(t, model.TierLegend, CalculateTier(50, 0))
	assert.Equal(t, model.TierKing, CalculateTier(20, 0))
}
