package models

import "testing"

func TestPurchaseOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    PurchaseOrderStatus
		to      PurchaseOrderStatus
		allowed bool
	}{
		{PurchaseOrderStatusDraft, PurchaseOrderStatusApproved, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusCanceled, true},
		{PurchaseOrderStatusDraft, PurchaseOrderStatusReceived, false},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusReceived, true},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusCanceled, true},
		{PurchaseOrderStatusApproved, PurchaseOrderStatusDraft, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusCanceled, false},
		{PurchaseOrderStatusReceived, PurchaseOrderStatusApproved, false},
		{PurchaseOrderStatusCanceled, PurchaseOrderStatusApproved, false},
		{PurchaseOrderStatusCanceled, PurchaseOrderStatusDraft, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", c.from, c.to, c.allowed, got)
		}
	}
}

func TestBackorderStatusIsOpen(t *testing.T) {
	open := []BackorderStatus{BackorderStatusPending, BackorderStatusPartiallyFulfilled}
	for _, s := range open {
		if !s.IsOpen() {
			t.Errorf("%s should be open", s)
		}
	}
	closed := []BackorderStatus{BackorderStatusFulfilled, BackorderStatusCancelled}
	for _, s := range closed {
		if s.IsOpen() {
			t.Errorf("%s should be closed", s)
		}
	}
}
