package models

type SalesOrderStatus string

const (
	SalesOrderStatusCreated   SalesOrderStatus = "Created"
	SalesOrderStatusReserved  SalesOrderStatus = "Reserved"
	SalesOrderStatusShipped   SalesOrderStatus = "Shipped"
	SalesOrderStatusDelivered SalesOrderStatus = "Delivered"
	SalesOrderStatusCancelled SalesOrderStatus = "Cancelled"
)

type BackorderStatus string

const (
	BackorderStatusPending            BackorderStatus = "Pending"
	BackorderStatusPartiallyFulfilled BackorderStatus = "Partially Fulfilled"
	BackorderStatusFulfilled          BackorderStatus = "Fulfilled"
	BackorderStatusCancelled          BackorderStatus = "Cancelled"
)

// IsOpen reports whether the backorder can still receive stock.
func (s BackorderStatus) IsOpen() bool {
	return s == BackorderStatusPending || s == BackorderStatusPartiallyFulfilled
}

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft    PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusApproved PurchaseOrderStatus = "Approved"
	PurchaseOrderStatusReceived PurchaseOrderStatus = "Received"
	PurchaseOrderStatusCanceled PurchaseOrderStatus = "Canceled"
)

// CanTransitionTo encodes the strict forward state machine:
// Draft -> Approved -> Received, with Canceled reachable from Draft/Approved.
func (s PurchaseOrderStatus) CanTransitionTo(next PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusDraft:
		return next == PurchaseOrderStatusApproved || next == PurchaseOrderStatusCanceled
	case PurchaseOrderStatusApproved:
		return next == PurchaseOrderStatusReceived || next == PurchaseOrderStatusCanceled
	default:
		return false
	}
}

type ShipmentStatus string

const (
	ShipmentStatusPlanned   ShipmentStatus = "Planned"
	ShipmentStatusShipped   ShipmentStatus = "Shipped"
	ShipmentStatusDelivered ShipmentStatus = "Delivered"
	ShipmentStatusCancelled ShipmentStatus = "Cancelled"
)

type MovementType string

const (
	MovementTypeInbound    MovementType = "Inbound"
	MovementTypeOutbound   MovementType = "Outbound"
	MovementTypeAdjustment MovementType = "Adjustment"
)
