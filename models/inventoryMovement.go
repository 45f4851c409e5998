package models

import (
	"context"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
	"gorm.io/gorm"
)

// InventoryMovement is the append-only audit trail of every stock change.
// Quantity is always positive; MovementType carries the direction.
type InventoryMovement struct {
	ID            int          `gorm:"primary_key" json:"id"`
	ProductId     int          `gorm:"not null;index" json:"product_id"`
	Product       Product      `json:"product"`
	WarehouseId   int          `gorm:"not null;index" json:"warehouse_id"`
	Warehouse     Warehouse    `json:"warehouse"`
	MovementType  MovementType `gorm:"size:20;not null" json:"movement_type"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	ReferenceNo   string       `gorm:"size:100;index" json:"reference_no"`
	CorrelationId string       `gorm:"size:100" json:"correlation_id"`
	Note          string       `gorm:"type:text" json:"note"`
	CreatedAt     time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

// RecordMovement appends an audit row inside the caller's transaction so the
// movement commits or rolls back together with the ledger change it mirrors.
// The row carries the request correlation id, which ties every stock change
// back to the API call that caused it.
func RecordMovement(ctx context.Context, tx *gorm.DB, productId int, warehouseId int, movementType MovementType, qty int, referenceNo string, note string) error {
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	movement := InventoryMovement{
		ProductId:     productId,
		WarehouseId:   warehouseId,
		MovementType:  movementType,
		Quantity:      qty,
		ReferenceNo:   referenceNo,
		CorrelationId: cid,
		Note:          note,
	}
	return tx.Create(&movement).Error
}

type MovementFilter struct {
	ProductId   *int       `form:"product_id"`
	WarehouseId *int       `form:"warehouse_id"`
	Type        *string    `form:"type"`
	From        *time.Time `form:"from" time_format:"2006-01-02"`
	To          *time.Time `form:"to" time_format:"2006-01-02"`
}

func GetInventoryMovements(ctx context.Context, filter *MovementFilter) ([]*InventoryMovement, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Preload("Product").
		Preload("Warehouse")

	if filter != nil {
		if filter.ProductId != nil {
			dbCtx = dbCtx.Where("product_id = ?", *filter.ProductId)
		}
		if filter.WarehouseId != nil {
			dbCtx = dbCtx.Where("warehouse_id = ?", *filter.WarehouseId)
		}
		if filter.Type != nil && len(*filter.Type) > 0 {
			dbCtx = dbCtx.Where("movement_type = ?", *filter.Type)
		}
		if filter.From != nil {
			dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
		}
		if filter.To != nil {
			dbCtx = dbCtx.Where("created_at < ?", filter.To.AddDate(0, 0, 1))
		}
	}

	var results []*InventoryMovement
	err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
