package workflow

// StockAvailability is the sellable quantity of one warehouse for the product
// being allocated.
type StockAvailability struct {
	WarehouseId int
	Available   int
}

// Allocation is a planned reservation of Quantity units in one warehouse.
type Allocation struct {
	WarehouseId int
	Quantity    int
}

// PlanLineAllocation plans the reservation of one order line: drain the
// preferred warehouse first, then spill into the others in the order given
// (callers pass them richest first, warehouse id ascending as tie-break).
// Whatever cannot be covered anywhere is returned as the shortfall.
func PlanLineAllocation(requested int, preferred StockAvailability, others []StockAvailability) ([]Allocation, int) {
	if requested <= 0 {
		return nil, 0
	}

	var allocations []Allocation
	remaining := requested

	take := func(source StockAvailability) {
		if remaining <= 0 || source.Available <= 0 {
			return
		}
		qty := source.Available
		if qty > remaining {
			qty = remaining
		}
		allocations = append(allocations, Allocation{
			WarehouseId: source.WarehouseId,
			Quantity:    qty,
		})
		remaining -= qty
	}

	take(preferred)
	for _, other := range others {
		take(other)
	}

	return allocations, remaining
}

// DistributeToBackorders splits a received quantity across the outstanding
// quantities of backorders in their given (FIFO) order. Each backorder is
// filled as far as possible before the next one sees any stock. The result
// is index-aligned with the input; the second value is the stock left over
// after the last backorder.
func DistributeToBackorders(outstanding []int, received int) ([]int, int) {
	granted := make([]int, len(outstanding))
	remaining := received
	for i, want := range outstanding {
		if remaining <= 0 {
			break
		}
		if want <= 0 {
			continue
		}
		qty := want
		if qty > remaining {
			qty = remaining
		}
		granted[i] = qty
		remaining -= qty
	}
	return granted, remaining
}
