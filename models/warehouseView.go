package models

import (
	"context"

	"github.com/distfocus/logistics_backend/config"
)

// WarehouseInventory is the read model for the warehouse stock view:
// one active warehouse with the ledger rows of its active products.
type WarehouseInventory struct {
	Warehouse Warehouse          `json:"warehouse"`
	Records   []*InventoryRecord `json:"records"`
}

// GetWarehousesWithInventory lists every active warehouse with the stock
// levels of active products it currently holds.
func GetWarehousesWithInventory(ctx context.Context) ([]*WarehouseInventory, error) {
	db := config.GetDB()

	var warehouses []*Warehouse
	err := db.WithContext(ctx).
		Where("is_active = true").
		Order("code").
		Find(&warehouses).Error
	if err != nil {
		return nil, err
	}

	views := make([]*WarehouseInventory, 0, len(warehouses))
	for _, warehouse := range warehouses {
		var records []*InventoryRecord
		err := db.WithContext(ctx).
			Preload("Product").
			Joins("JOIN products ON products.id = inventory_records.product_id AND products.is_active = true").
			Where("inventory_records.warehouse_id = ?", warehouse.ID).
			Order("products.sku").
			Find(&records).Error
		if err != nil {
			return nil, err
		}
		views = append(views, &WarehouseInventory{
			Warehouse: *warehouse,
			Records:   records,
		})
	}
	return views, nil
}

// GetInventoryRecords lists ledger rows, optionally filtered by product or
// warehouse.
func GetInventoryRecords(ctx context.Context, productId *int, warehouseId *int) ([]*InventoryRecord, error) {
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

	var results []*InventoryRecord
	err := dbCtx.Order("product_id, warehouse_id").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
