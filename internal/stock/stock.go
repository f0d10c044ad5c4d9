// Package stock holds the counter arena: one atomic counter per variant
// group pool and one per item, keyed (product, round, variant group,
// item). The product document keeps only descriptive fields; every live
// stock number lives here, so concurrent buyers of different products,
// or of different groups of one product, never serialize on a shared
// aggregate.
package stock

import "github.com/greenbasket/groupbuy-service/internal/model"

// CounterKey addresses one counter. An empty ItemID addresses the shared
// group pool; a set ItemID addresses the per-item counter.
type CounterKey struct {
	ProductID      string
	RoundID        string
	VariantGroupID string
	ItemID         string
}

func GroupKey(productID, roundID, groupID string) CounterKey {
	return CounterKey{ProductID: productID, RoundID: roundID, VariantGroupID: groupID}
}

func ItemKey(productID, roundID, groupID, itemID string) CounterKey {
	return CounterKey{ProductID: productID, RoundID: roundID, VariantGroupID: groupID, ItemID: itemID}
}

// Counter is a point-in-time reading. Remaining == nil means unlimited.
type Counter struct {
	Key       CounterKey
	Remaining *int
}

// Adjustment is one signed counter mutation. Negative Delta reserves,
// positive Delta restores or restocks. PerUnit is how many counter units
// one ordered unit consumes (the deduction amount for group pools, 1 for
// item counters); it converts a remaining pool count back into sellable
// units for error messages.
type Adjustment struct {
	Key     CounterKey
	Delta   int
	PerUnit int
}

func Reserve(key CounterKey, units, perUnit int) Adjustment {
	return Adjustment{Key: key, Delta: -units * perUnit, PerUnit: perUnit}
}

func Restore(key CounterKey, units, perUnit int) Adjustment {
	return Adjustment{Key: key, Delta: units * perUnit, PerUnit: perUnit}
}

// AvailableUnits computes how many units of an item can still be sold
// given the group pool and item counter readings. A nil reading
// contributes no bound. Returns model.UnlimitedStock when neither side
// bounds the sale.
func AvailableUnits(groupRemaining, itemRemaining *int, deductionAmount int) int {
	if deductionAmount < 1 {
		deductionAmount = 1
	}
	// Readings are clamped before any arithmetic: a negative pool divided
	// by the deduction amount could land exactly on the unlimited
	// sentinel and flip a bounded counter open.
	units := model.UnlimitedStock
	if groupRemaining != nil {
		pool := *groupRemaining
		if pool < 0 {
			pool = 0
		}
		units = pool / deductionAmount
	}
	if itemRemaining != nil {
		left := *itemRemaining
		if left < 0 {
			left = 0
		}
		if units == model.UnlimitedStock || left < units {
			units = left
		}
	}
	return units
}

// Bounded reports whether the availability figure is an actual bound.
func Bounded(units int) bool {
	return units != model.UnlimitedStock
}
