package workflow

import (
	"context"
	"fmt"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/utils"
)

// ReceiptLineResult reports one received line and what the chained
// fulfillment pass managed to distribute.
type ReceiptLineResult struct {
	ProductId   int                 `json:"product_id"`
	ReceivedQty int                 `json:"received_qty"`
	Fulfillment *FulfillmentOutcome `json:"fulfillment,omitempty"`
}

type ReceiptResult struct {
	PurchaseOrderId int                 `json:"purchase_order_id"`
	PoNumber        string              `json:"po_number"`
	Lines           []ReceiptLineResult `json:"lines"`
}

// ReceiveEntirePurchaseOrder books every line of an APPROVED purchase order
// into the destination warehouse and moves the order to RECEIVED. After each
// line lands, pending backorders of that stock key are fulfilled best-effort:
// a fulfillment failure is logged and rolled back to a savepoint, the receipt
// itself always stands.
func ReceiveEntirePurchaseOrder(ctx context.Context, purchaseOrderId int) (*ReceiptResult, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	tx := db.Begin()

	po, err := utils.FetchModelForUpdate[models.PurchaseOrder](tx.WithContext(ctx), purchaseOrderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if !po.Status.CanTransitionTo(models.PurchaseOrderStatusReceived) {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"purchase order %s is %s; only APPROVED orders can be received", po.PoNumber, po.Status)
	}

	var lines []models.PoLine
	if err := tx.WithContext(ctx).
		Where("purchase_order_id = ?", po.ID).
		Order("id").
		Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	result := ReceiptResult{
		PurchaseOrderId: po.ID,
		PoNumber:        po.PoNumber,
	}

	for i := range lines {
		line := &lines[i]
		delta := line.Quantity - line.ReceivedQuantity
		if delta <= 0 {
			continue
		}

		release, _ := utils.StockKeyLock(ctx, line.ProductId, po.DestinationWarehouseId,
			"workflow", "ReceiveEntirePurchaseOrder")

		record, err := models.LockOrCreateInventoryRecord(tx, line.ProductId, po.DestinationWarehouseId)
		if err != nil {
			release()
			tx.Rollback()
			return nil, err
		}
		if err := record.Receive(delta); err != nil {
			release()
			tx.Rollback()
			return nil, err
		}
		if err := tx.Model(record).Update("QtyOnHand", record.QtyOnHand).Error; err != nil {
			release()
			tx.Rollback()
			return nil, err
		}
		line.ReceivedQuantity = line.Quantity
		if err := tx.Model(line).Update("ReceivedQuantity", line.ReceivedQuantity).Error; err != nil {
			release()
			tx.Rollback()
			return nil, err
		}
		if err := models.RecordMovement(ctx, tx, line.ProductId, po.DestinationWarehouseId,
			models.MovementTypeInbound, delta, po.PoNumber,
			"purchase order receipt"); err != nil {
			release()
			tx.Rollback()
			return nil, err
		}

		lineResult := ReceiptLineResult{
			ProductId:   line.ProductId,
			ReceivedQty: delta,
		}

		// Fulfillment must never sink the receipt: run it against a savepoint
		// and log + roll back to the savepoint when it fails.
		savepoint := fmt.Sprintf("receipt_line_%d", i)
		tx.SavePoint(savepoint)
		outcome, err := ProcessPendingBackorders(ctx, tx, line.ProductId, po.DestinationWarehouseId, delta)
		if err != nil {
			config.LogError(logger, "workflow", "ReceiveEntirePurchaseOrder",
				"backorder fulfillment after receipt", po.PoNumber, err)
			tx.RollbackTo(savepoint)
		} else {
			lineResult.Fulfillment = outcome
		}

		release()
		result.Lines = append(result.Lines, lineResult)
	}

	if err := models.MarkPurchaseOrderReceived(tx.WithContext(ctx), po); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &result, nil
}
