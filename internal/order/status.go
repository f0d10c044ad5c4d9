package order

import "github.com/greenbasket/groupbuy-service/internal/model"

// validNext encodes the order lifecycle. PICKED_UP, CANCELED, NO_SHOW and
// COMPLETED are terminal: nothing transitions out of them.
var validNext = map[model.OrderStatus]map[model.OrderStatus]bool{
	model.StatusReserved: {
		model.StatusPrepaid:  true,
		model.StatusPickedUp: true,
		model.StatusCanceled: true,
		model.StatusNoShow:   true,
	},
	model.StatusPrepaid: {
		model.StatusPickedUp: true,
		model.StatusCanceled: true,
		model.StatusNoShow:   true,
	},
	model.StatusPickedUp:  {},
	model.StatusCanceled:  {},
	model.StatusNoShow:    {},
	model.StatusCompleted: {},
}

func CanTransition(from, to model.OrderStatus) bool {
	return validNext[from][to]
}
