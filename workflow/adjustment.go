package workflow

import (
	"context"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/utils"
)

type NewAdjustment struct {
	ProductId   int    `json:"product_id" binding:"required"`
	WarehouseId int    `json:"warehouse_id" binding:"required"`
	Delta       int    `json:"delta" binding:"required"`
	Note        string `json:"note"`
}

// AdjustInventory applies a manual stock correction (cycle count, damage,
// found stock). A negative delta may never cut into reserved units.
func AdjustInventory(ctx context.Context, input *NewAdjustment) (*models.InventoryRecord, error) {
	db := config.GetDB()

	if input.Delta == 0 {
		return nil, utils.NewValidationError("adjustment delta must be non-zero")
	}
	if err := utils.ValidateActiveResourceId[models.Product](ctx, input.ProductId); err != nil {
		return nil, utils.NewValidationError("product %d not found or inactive", input.ProductId)
	}
	if err := utils.ValidateActiveResourceId[models.Warehouse](ctx, input.WarehouseId); err != nil {
		return nil, utils.NewValidationError("warehouse %d not found or inactive", input.WarehouseId)
	}

	release, _ := utils.StockKeyLock(ctx, input.ProductId, input.WarehouseId, "workflow", "AdjustInventory")
	defer release()

	tx := db.Begin()

	record, err := models.LockOrCreateInventoryRecord(tx.WithContext(ctx), input.ProductId, input.WarehouseId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if input.Delta > 0 {
		if err := record.Receive(input.Delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		removal := -input.Delta
		if record.Available() < removal {
			tx.Rollback()
			return nil, utils.NewResourceExhaustionError(
				"cannot remove %d units of product %d from warehouse %d: only %d unreserved",
				removal, input.ProductId, input.WarehouseId, record.Available())
		}
		record.QtyOnHand -= removal
	}

	if err := tx.Model(record).Update("QtyOnHand", record.QtyOnHand).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	qty := input.Delta
	if qty < 0 {
		qty = -qty
	}
	if err := models.RecordMovement(ctx, tx, input.ProductId, input.WarehouseId,
		models.MovementTypeAdjustment, qty, "", input.Note); err != nil {
		tx.Rollback()
		return nil, err
	}

	// A positive correction is fresh availability; let waiting backorders
	// take it the same way a receipt would.
	if input.Delta > 0 {
		if _, err := ProcessPendingBackorders(ctx, tx, input.ProductId, input.WarehouseId, input.Delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return record, nil
}
