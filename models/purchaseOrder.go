package models

import (
	"context"
	"fmt"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PurchaseOrder struct {
	ID                     int                 `gorm:"primary_key" json:"id"`
	PoNumber               string              `gorm:"size:100;uniqueIndex;not null" json:"po_number"`
	SequenceNo             int64               `gorm:"not null" json:"sequence_no"`
	SupplierId             int                 `gorm:"index;not null" json:"supplier_id"`
	Supplier               Supplier            `json:"supplier"`
	DestinationWarehouseId int                 `gorm:"index;not null" json:"destination_warehouse_id"`
	DestinationWarehouse   Warehouse           `gorm:"foreignKey:DestinationWarehouseId" json:"destination_warehouse"`
	Status                 PurchaseOrderStatus `gorm:"size:30;not null" json:"status"`
	IsAutoCreated          *bool               `gorm:"not null;default:false" json:"is_auto_created"`
	ExpectedDeliveryDate   *time.Time          `json:"expected_delivery_date"`
	Notes                  string              `gorm:"type:text" json:"notes"`
	TotalAmount            decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CreatedAt              time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	ReceivedAt             *time.Time          `json:"received_at"`
	Lines                  []PoLine            `gorm:"foreignKey:PurchaseOrderId" json:"lines"`
}

type PoLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId  int             `gorm:"index;not null" json:"purchase_order_id"`
	ProductId        int             `gorm:"not null" json:"product_id"`
	Product          Product         `json:"product"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	ReceivedQuantity int             `gorm:"not null;default:0" json:"received_quantity"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

type NewPurchaseOrder struct {
	SupplierId             int             `json:"supplier_id" binding:"required"`
	DestinationWarehouseId int             `json:"destination_warehouse_id" binding:"required"`
	ExpectedDeliveryDate   *time.Time      `json:"expected_delivery_date"`
	Notes                  string          `json:"notes"`
	Lines                  []NewPoLine     `json:"lines" binding:"required,min=1,dive"`
}

type NewPoLine struct {
	ProductId int              `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitCost  *decimal.Decimal `json:"unit_cost"`
}

func (input *NewPurchaseOrder) validate(ctx context.Context) error {
	if err := utils.ValidateActiveResourceId[Supplier](ctx, input.SupplierId); err != nil {
		return utils.NewValidationError("supplier %d not found or inactive", input.SupplierId)
	}
	if err := utils.ValidateActiveResourceId[Warehouse](ctx, input.DestinationWarehouseId); err != nil {
		return utils.NewValidationError("warehouse %d not found or inactive", input.DestinationWarehouseId)
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return utils.NewValidationError("line quantity must be positive, got %d", line.Quantity)
		}
		if err := utils.ValidateActiveResourceId[Product](ctx, line.ProductId); err != nil {
			return utils.NewValidationError("product %d not found or inactive", line.ProductId)
		}
	}
	return nil
}

// CreatePurchaseOrder stores a manual replenishment order as DRAFT. Unit cost
// defaults to the product's catalog cost price.
func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	var lines []PoLine
	var totalAmount decimal.Decimal
	for _, item := range input.Lines {
		unitCost := decimal.Zero
		if item.UnitCost != nil {
			unitCost = *item.UnitCost
		}
		if unitCost.IsZero() {
			product, err := utils.FetchModel[Product](ctx, item.ProductId)
			if err != nil {
				return nil, err
			}
			unitCost = product.CostPrice
		}

		lineTotal := unitCost.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, PoLine{
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
			UnitCost:  unitCost,
			LineTotal: lineTotal,
		})
		totalAmount = totalAmount.Add(lineTotal)
	}

	purchaseOrder := PurchaseOrder{
		SupplierId:             input.SupplierId,
		DestinationWarehouseId: input.DestinationWarehouseId,
		Status:                 PurchaseOrderStatusDraft,
		IsAutoCreated:          utils.NewFalse(),
		ExpectedDeliveryDate:   input.ExpectedDeliveryDate,
		Notes:                  input.Notes,
		TotalAmount:            totalAmount,
		Lines:                  lines,
	}

	tx := db.Begin()
	seqNo, err := utils.GetSequence[PurchaseOrder](ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	purchaseOrder.SequenceNo = seqNo
	purchaseOrder.PoNumber = fmt.Sprintf("PO-%06d", seqNo)

	if err := tx.WithContext(ctx).Create(&purchaseOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &purchaseOrder, nil
}

// CreateAutoPurchaseOrder stores a reservation-triggered replenishment order
// inside the caller's transaction, so the DRAFT PO commits or rolls back with
// the reservation pass that sized it.
func CreateAutoPurchaseOrder(ctx context.Context, tx *gorm.DB, supplierId int, warehouseId int, productId int, qty int, unitCost decimal.Decimal, notes string) (*PurchaseOrder, error) {
	if qty <= 0 {
		return nil, utils.NewValidationError("auto purchase order quantity must be positive, got %d", qty)
	}

	seqNo, err := utils.GetSequence[PurchaseOrder](ctx)
	if err != nil {
		return nil, err
	}

	lineTotal := unitCost.Mul(decimal.NewFromInt(int64(qty)))
	purchaseOrder := PurchaseOrder{
		PoNumber:               fmt.Sprintf("PO-AUTO-%06d", seqNo),
		SequenceNo:             seqNo,
		SupplierId:             supplierId,
		DestinationWarehouseId: warehouseId,
		Status:                 PurchaseOrderStatusDraft,
		IsAutoCreated:          utils.NewTrue(),
		Notes:                  notes,
		TotalAmount:            lineTotal,
		Lines: []PoLine{{
			ProductId: productId,
			Quantity:  qty,
			UnitCost:  unitCost,
			LineTotal: lineTotal,
		}},
	}

	if err := tx.Create(&purchaseOrder).Error; err != nil {
		return nil, err
	}
	return &purchaseOrder, nil
}

// ApprovePurchaseOrder moves a DRAFT purchase order to APPROVED.
func ApprovePurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return transitionPurchaseOrder(ctx, id, PurchaseOrderStatusApproved)
}

// CancelPurchaseOrder cancels a DRAFT or APPROVED purchase order.
func CancelPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return transitionPurchaseOrder(ctx, id, PurchaseOrderStatusCanceled)
}

func transitionPurchaseOrder(ctx context.Context, id int, next PurchaseOrderStatus) (*PurchaseOrder, error) {
	db := config.GetDB()
	tx := db.Begin()

	po, err := utils.FetchModelForUpdate[PurchaseOrder](tx.WithContext(ctx), id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !po.Status.CanTransitionTo(next) {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"purchase order %s is %s and cannot move to %s", po.PoNumber, po.Status, next)
	}

	po.Status = next
	if err := tx.WithContext(ctx).Model(po).Update("Status", next).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return po, nil
}

// MarkPurchaseOrderReceived stamps the terminal RECEIVED state inside the
// caller's receipt transaction.
func MarkPurchaseOrderReceived(tx *gorm.DB, po *PurchaseOrder) error {
	if !po.Status.CanTransitionTo(PurchaseOrderStatusReceived) {
		return utils.NewStateConflictError(
			"purchase order %s is %s and cannot be received", po.PoNumber, po.Status)
	}
	now := time.Now().UTC()
	po.Status = PurchaseOrderStatusReceived
	po.ReceivedAt = &now
	return tx.Model(po).Updates(map[string]interface{}{
		"Status":     PurchaseOrderStatusReceived,
		"ReceivedAt": &now,
	}).Error
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return utils.FetchModel[PurchaseOrder](ctx, id, "Lines", "Lines.Product", "Supplier", "DestinationWarehouse")
}

func GetPurchaseOrders(ctx context.Context, supplierId *int, status *PurchaseOrderStatus) ([]*PurchaseOrder, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Preload("Supplier")

	if supplierId != nil && *supplierId > 0 {
		dbCtx = dbCtx.Where("supplier_id = ?", *supplierId)
	}
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var results []*PurchaseOrder
	err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
