package workflow

import (
	"reflect"
	"testing"
)

func TestPlanLineAllocationPreferredCoversAll(t *testing.T) {
	allocs, shortfall := PlanLineAllocation(5,
		StockAvailability{WarehouseId: 1, Available: 10},
		[]StockAvailability{{WarehouseId: 2, Available: 100}})

	if shortfall != 0 {
		t.Fatalf("expected no shortfall, got %d", shortfall)
	}
	want := []Allocation{{WarehouseId: 1, Quantity: 5}}
	if !reflect.DeepEqual(allocs, want) {
		t.Fatalf("expected %v, got %v", want, allocs)
	}
}

func TestPlanLineAllocationSpillsAcrossWarehouses(t *testing.T) {
	allocs, shortfall := PlanLineAllocation(12,
		StockAvailability{WarehouseId: 1, Available: 4},
		[]StockAvailability{
			{WarehouseId: 3, Available: 5},
			{WarehouseId: 2, Available: 2},
		})

	if shortfall != 1 {
		t.Fatalf("expected shortfall=1, got %d", shortfall)
	}
	want := []Allocation{
		{WarehouseId: 1, Quantity: 4},
		{WarehouseId: 3, Quantity: 5},
		{WarehouseId: 2, Quantity: 2},
	}
	if !reflect.DeepEqual(allocs, want) {
		t.Fatalf("expected %v, got %v", want, allocs)
	}
}

func TestPlanLineAllocationNothingAvailable(t *testing.T) {
	allocs, shortfall := PlanLineAllocation(7,
		StockAvailability{WarehouseId: 1, Available: 0},
		nil)

	if len(allocs) != 0 {
		t.Fatalf("expected no allocations, got %v", allocs)
	}
	if shortfall != 7 {
		t.Fatalf("expected shortfall=7, got %d", shortfall)
	}
}

func TestPlanLineAllocationIgnoresEmptyOthers(t *testing.T) {
	allocs, shortfall := PlanLineAllocation(3,
		StockAvailability{WarehouseId: 1, Available: 1},
		[]StockAvailability{
			{WarehouseId: 2, Available: 0},
			{WarehouseId: 3, Available: 9},
		})

	if shortfall != 0 {
		t.Fatalf("expected no shortfall, got %d", shortfall)
	}
	want := []Allocation{
		{WarehouseId: 1, Quantity: 1},
		{WarehouseId: 3, Quantity: 2},
	}
	if !reflect.DeepEqual(allocs, want) {
		t.Fatalf("expected %v, got %v", want, allocs)
	}
}

func TestPlanLineAllocationNonPositiveRequest(t *testing.T) {
	for _, requested := range []int{0, -4} {
		allocs, shortfall := PlanLineAllocation(requested,
			StockAvailability{WarehouseId: 1, Available: 10}, nil)
		if len(allocs) != 0 || shortfall != 0 {
			t.Fatalf("requested=%d: expected empty plan, got %v shortfall=%d", requested, allocs, shortfall)
		}
	}
}

func TestDistributeToBackordersStrictFIFO(t *testing.T) {
	granted, leftover := DistributeToBackorders([]int{6, 5, 4}, 9)

	want := []int{6, 3, 0}
	if !reflect.DeepEqual(granted, want) {
		t.Fatalf("expected %v, got %v", want, granted)
	}
	if leftover != 0 {
		t.Fatalf("expected leftover=0, got %d", leftover)
	}
}

func TestDistributeToBackordersSurplus(t *testing.T) {
	granted, leftover := DistributeToBackorders([]int{2, 3}, 10)

	want := []int{2, 3}
	if !reflect.DeepEqual(granted, want) {
		t.Fatalf("expected %v, got %v", want, granted)
	}
	if leftover != 5 {
		t.Fatalf("expected leftover=5, got %d", leftover)
	}
}

func TestDistributeToBackordersSkipsClosedEntries(t *testing.T) {
	// zero outstanding entries (already fulfilled) must not absorb stock
	granted, leftover := DistributeToBackorders([]int{0, 4, 0, 2}, 5)

	want := []int{0, 4, 0, 1}
	if !reflect.DeepEqual(granted, want) {
		t.Fatalf("expected %v, got %v", want, granted)
	}
	if leftover != 0 {
		t.Fatalf("expected leftover=0, got %d", leftover)
	}
}

func TestDistributeToBackordersNothingReceived(t *testing.T) {
	granted, leftover := DistributeToBackorders([]int{3, 3}, 0)
	if granted[0] != 0 || granted[1] != 0 || leftover != 0 {
		t.Fatalf("expected nothing distributed, got %v leftover=%d", granted, leftover)
	}
}
