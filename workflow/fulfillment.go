package workflow

import (
	"context"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/utils"
	"gorm.io/gorm"
)

// FulfillmentOutcome reports what one fulfillment pass did for a stock key.
type FulfillmentOutcome struct {
	ProductId        int   `json:"product_id"`
	WarehouseId      int   `json:"warehouse_id"`
	DistributedQty   int   `json:"distributed_qty"`
	FulfilledIds     []int `json:"fulfilled_backorder_ids"`
	PartialIds       []int `json:"partially_fulfilled_backorder_ids"`
	RemainingReceipt int   `json:"remaining_receipt"`
}

// ProcessPendingBackorders distributes newly available stock of one
// (product, warehouse) key across its open backorders in strict arrival
// order: oldest first, id as tie-break, each filled as far as possible before
// the next sees a unit. Runs inside the caller's transaction; the distributed
// units become reservations on the waiting order lines.
func ProcessPendingBackorders(ctx context.Context, tx *gorm.DB, productId int, warehouseId int, receivedQty int) (*FulfillmentOutcome, error) {
	logger := config.GetLogger()

	outcome := FulfillmentOutcome{
		ProductId:        productId,
		WarehouseId:      warehouseId,
		RemainingReceipt: receivedQty,
	}
	if receivedQty <= 0 {
		return &outcome, nil
	}

	record, err := models.LockInventoryRecord(tx, productId, warehouseId)
	if err != nil {
		if err == utils.ErrorRecordNotFound {
			return &outcome, nil
		}
		return nil, err
	}

	backorders, err := models.FindPendingBackorders(tx, productId, warehouseId)
	if err != nil {
		return nil, err
	}
	if len(backorders) == 0 {
		return &outcome, nil
	}

	// Never hand out more than the row actually has free, even if the caller
	// reported a larger receipt.
	distributable := utils.MinInt(receivedQty, record.Available())

	outstanding := make([]int, len(backorders))
	for i, backorder := range backorders {
		outstanding[i] = backorder.Outstanding()
	}
	granted, _ := DistributeToBackorders(outstanding, distributable)

	touchedOrders := map[int]bool{}
	for i, qty := range granted {
		if qty <= 0 {
			continue
		}
		backorder := backorders[i]

		if err := record.Reserve(qty); err != nil {
			return nil, err
		}
		if err := models.AddLineReservation(tx, backorder.SoLineId, warehouseId, qty); err != nil {
			return nil, err
		}
		if err := models.AddSoLineReserved(tx, backorder.SoLineId, qty); err != nil {
			return nil, err
		}
		if err := models.ApplyBackorderFulfillment(tx, backorder, qty); err != nil {
			return nil, err
		}

		outcome.DistributedQty += qty
		if backorder.Status == models.BackorderStatusFulfilled {
			outcome.FulfilledIds = append(outcome.FulfilledIds, backorder.ID)
		} else {
			outcome.PartialIds = append(outcome.PartialIds, backorder.ID)
		}
		touchedOrders[backorder.SalesOrderId] = true
	}

	if outcome.DistributedQty > 0 {
		if err := tx.Model(record).Update("QtyReserved", record.QtyReserved).Error; err != nil {
			return nil, err
		}
	}

	for salesOrderId := range touchedOrders {
		if _, err := models.RefreshSalesOrderStatus(tx.WithContext(ctx), salesOrderId); err != nil {
			config.LogError(logger, "workflow", "ProcessPendingBackorders",
				"refresh sales order status", salesOrderId, err)
			return nil, err
		}
	}

	outcome.RemainingReceipt = receivedQty - outcome.DistributedQty
	return &outcome, nil
}
