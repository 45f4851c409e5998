package models

import (
	"testing"

	"github.com/distfocus/logistics_backend/utils"
)

func TestInventoryRecordReserve(t *testing.T) {
	r := InventoryRecord{ProductId: 1, WarehouseId: 1, QtyOnHand: 10, QtyReserved: 3}

	if got := r.Available(); got != 7 {
		t.Fatalf("expected available=7, got %d", got)
	}
	if err := r.Reserve(5); err != nil {
		t.Fatalf("Reserve(5): %v", err)
	}
	if r.QtyReserved != 8 || r.QtyOnHand != 10 {
		t.Fatalf("expected on_hand=10 reserved=8, got %d/%d", r.QtyOnHand, r.QtyReserved)
	}

	err := r.Reserve(3)
	if err == nil {
		t.Fatal("expected error reserving beyond available")
	}
	if !utils.IsResourceExhaustionError(err) {
		t.Fatalf("expected ResourceExhaustionError, got %T", err)
	}
	if r.QtyReserved != 8 {
		t.Fatalf("failed reserve must not mutate; reserved=%d", r.QtyReserved)
	}

	if err := r.Reserve(0); !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError for zero qty, got %v", err)
	}
	if err := r.Reserve(-2); !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError for negative qty, got %v", err)
	}
}

func TestInventoryRecordDebitShipment(t *testing.T) {
	r := InventoryRecord{QtyOnHand: 10, QtyReserved: 6}

	if err := r.DebitShipment(4); err != nil {
		t.Fatalf("DebitShipment(4): %v", err)
	}
	if r.QtyOnHand != 6 || r.QtyReserved != 2 {
		t.Fatalf("expected 6/2 after debit, got %d/%d", r.QtyOnHand, r.QtyReserved)
	}

	err := r.DebitShipment(3)
	if !utils.IsResourceExhaustionError(err) {
		t.Fatalf("expected ResourceExhaustionError debiting beyond reserved, got %v", err)
	}
	if r.QtyOnHand != 6 || r.QtyReserved != 2 {
		t.Fatalf("failed debit must not mutate, got %d/%d", r.QtyOnHand, r.QtyReserved)
	}

	// invariant still holds after a full drain
	if err := r.DebitShipment(2); err != nil {
		t.Fatalf("DebitShipment(2): %v", err)
	}
	if r.QtyReserved != 0 || r.QtyOnHand != 4 {
		t.Fatalf("expected 4/0, got %d/%d", r.QtyOnHand, r.QtyReserved)
	}
}

func TestInventoryRecordReceiveAndRelease(t *testing.T) {
	r := InventoryRecord{QtyOnHand: 0, QtyReserved: 0}

	if err := r.Receive(15); err != nil {
		t.Fatalf("Receive(15): %v", err)
	}
	if err := r.Receive(-1); !utils.IsValidationError(err) {
		t.Fatalf("expected ValidationError for negative receive, got %v", err)
	}
	if err := r.Reserve(15); err != nil {
		t.Fatalf("Reserve(15): %v", err)
	}

	if err := r.Release(5); err != nil {
		t.Fatalf("Release(5): %v", err)
	}
	if r.QtyReserved != 10 || r.QtyOnHand != 15 {
		t.Fatalf("expected 15/10, got %d/%d", r.QtyOnHand, r.QtyReserved)
	}
	if err := r.Release(11); !utils.IsResourceExhaustionError(err) {
		t.Fatalf("expected ResourceExhaustionError releasing beyond reserved, got %v", err)
	}
}

func TestBackorderOutstanding(t *testing.T) {
	b := Backorder{Quantity: 10, FulfilledQuantity: 4}
	if got := b.Outstanding(); got != 6 {
		t.Fatalf("expected outstanding=6, got %d", got)
	}
}
