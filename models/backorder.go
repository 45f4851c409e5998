package models

import (
	"context"
	"strings"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backorder tracks the unfilled remainder of a sales order line for one
// (product, warehouse) key. Fulfillment order is strictly created_at then id,
// so the auto-increment id doubles as the FIFO tie-break within a timestamp.
type Backorder struct {
	ID                       int             `gorm:"primary_key" json:"id"`
	SalesOrderId             int             `gorm:"index;not null" json:"sales_order_id"`
	SalesOrder               SalesOrder      `json:"sales_order"`
	SoLineId                 int             `gorm:"index;not null" json:"so_line_id"`
	ProductId                int             `gorm:"not null;index:backorder_stock_key,priority:1" json:"product_id"`
	Product                  Product         `json:"product"`
	WarehouseId              int             `gorm:"not null;index:backorder_stock_key,priority:2" json:"warehouse_id"`
	Warehouse                Warehouse       `json:"warehouse"`
	Quantity                 int             `gorm:"not null" json:"quantity"`
	FulfilledQuantity        int             `gorm:"not null;default:0" json:"fulfilled_quantity"`
	Status                   BackorderStatus `gorm:"size:30;not null" json:"status"`
	Notes                    string          `gorm:"type:text" json:"notes"`
	TriggeredPurchaseOrderId *int            `json:"triggered_purchase_order_id"`
	CreatedAt                time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	FulfilledAt              *time.Time      `json:"fulfilled_at"`
}

// Outstanding is the quantity still waiting for stock.
func (b *Backorder) Outstanding() int {
	return b.Quantity - b.FulfilledQuantity
}

// CreateBackorder appends a PENDING backorder inside the caller's transaction.
func CreateBackorder(tx *gorm.DB, salesOrderId int, soLineId int, productId int, warehouseId int, qty int, notes string) (*Backorder, error) {
	if qty <= 0 {
		return nil, utils.NewValidationError("backorder quantity must be positive, got %d", qty)
	}
	backorder := Backorder{
		SalesOrderId: salesOrderId,
		SoLineId:     soLineId,
		ProductId:    productId,
		WarehouseId:  warehouseId,
		Quantity:     qty,
		Status:       BackorderStatusPending,
		Notes:        notes,
	}
	if err := tx.Create(&backorder).Error; err != nil {
		return nil, err
	}
	return &backorder, nil
}

// FindPendingBackorders locks every open backorder for a stock key in strict
// arrival order. The FOR UPDATE lock keeps two concurrent receipts from
// fulfilling the same backorder twice.
func FindPendingBackorders(tx *gorm.DB, productId int, warehouseId int) ([]*Backorder, error) {
	var results []*Backorder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse_id = ? AND status IN ?",
			productId, warehouseId,
			[]BackorderStatus{BackorderStatusPending, BackorderStatusPartiallyFulfilled}).
		Order("created_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// TotalOutstandingBackorderQty sums the still-unfilled quantity across every
// open backorder of a stock key. Used to size auto purchase orders.
func TotalOutstandingBackorderQty(tx *gorm.DB, productId int, warehouseId int) (int, error) {
	var total *int
	err := tx.Model(&Backorder{}).
		Select("sum(quantity - fulfilled_quantity)").
		Where("product_id = ? AND warehouse_id = ? AND status IN ?",
			productId, warehouseId,
			[]BackorderStatus{BackorderStatusPending, BackorderStatusPartiallyFulfilled}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return utils.DereferencePtr(total), nil
}

// OutstandingBackorderQtyForLine sums the still-unfilled quantity across the
// open backorders of one sales order line. The reservation engine subtracts
// this from a line's remaining demand so a re-run over a still-CREATED order
// cannot record the same shortfall twice.
func OutstandingBackorderQtyForLine(tx *gorm.DB, soLineId int) (int, error) {
	var total *int
	err := tx.Model(&Backorder{}).
		Select("sum(quantity - fulfilled_quantity)").
		Where("so_line_id = ? AND status IN ?", soLineId,
			[]BackorderStatus{BackorderStatusPending, BackorderStatusPartiallyFulfilled}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return utils.DereferencePtr(total), nil
}

// ApplyBackorderFulfillment records qty units arriving against one backorder:
// bumps the fulfilled counter and rolls the status forward, stamping
// fulfilled_at when the backorder closes.
func ApplyBackorderFulfillment(tx *gorm.DB, backorder *Backorder, qty int) error {
	if qty <= 0 || qty > backorder.Outstanding() {
		return utils.NewValidationError(
			"cannot fulfill %d units on backorder %d with %d outstanding",
			qty, backorder.ID, backorder.Outstanding())
	}

	backorder.FulfilledQuantity += qty
	updates := map[string]interface{}{
		"FulfilledQuantity": backorder.FulfilledQuantity,
	}
	if backorder.Outstanding() == 0 {
		now := time.Now().UTC()
		backorder.Status = BackorderStatusFulfilled
		backorder.FulfilledAt = &now
		updates["Status"] = BackorderStatusFulfilled
		updates["FulfilledAt"] = &now
	} else {
		backorder.Status = BackorderStatusPartiallyFulfilled
		updates["Status"] = BackorderStatusPartiallyFulfilled
	}
	return tx.Model(backorder).Updates(updates).Error
}

// AppendBackorderNote adds a line to the backorder's notes field.
func AppendBackorderNote(tx *gorm.DB, backorder *Backorder, note string) error {
	combined := backorder.Notes
	if strings.TrimSpace(combined) != "" {
		combined += "\n"
	}
	combined += note
	backorder.Notes = combined
	return tx.Model(backorder).Update("Notes", combined).Error
}

// LinkBackorderPurchaseOrder stamps the replenishment PO that a backorder
// triggered.
func LinkBackorderPurchaseOrder(tx *gorm.DB, backorder *Backorder, purchaseOrderId int) error {
	backorder.TriggeredPurchaseOrderId = &purchaseOrderId
	return tx.Model(backorder).Update("TriggeredPurchaseOrderId", purchaseOrderId).Error
}

// CancelBackorder cancels an open backorder. Whatever portion was already
// fulfilled stays reserved on the sales order line; cancellation only stops
// future receipts from allocating to it.
func CancelBackorder(ctx context.Context, id int) (*Backorder, error) {
	db := config.GetDB()
	tx := db.Begin()

	backorder, err := utils.FetchModelForUpdate[Backorder](tx.WithContext(ctx), id)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !backorder.Status.IsOpen() {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"backorder %d is %s and cannot be cancelled", id, backorder.Status)
	}

	backorder.Status = BackorderStatusCancelled
	if err := tx.WithContext(ctx).Model(backorder).Update("Status", BackorderStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return backorder, nil
}

func GetBackorder(ctx context.Context, id int) (*Backorder, error) {
	return utils.FetchModel[Backorder](ctx, id, "Product", "Warehouse")
}

func GetBackordersForSalesOrder(ctx context.Context, salesOrderId int) ([]*Backorder, error) {
	db := config.GetDB()
	var results []*Backorder
	err := db.WithContext(ctx).
		Preload("Product").
		Preload("Warehouse").
		Where("sales_order_id = ?", salesOrderId).
		Order("created_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetBackorders(ctx context.Context, productId *int, warehouseId *int, status *BackorderStatus) ([]*Backorder, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Preload("Product").
		Preload("Warehouse")

	if productId != nil && *productId > 0 {
		dbCtx = dbCtx.Where("product_id = ?", *productId)
	}
	if warehouseId != nil && *warehouseId > 0 {
		dbCtx = dbCtx.Where("warehouse_id = ?", *warehouseId)
	}
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var results []*Backorder
	err := dbCtx.Order("created_at ASC, id ASC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
