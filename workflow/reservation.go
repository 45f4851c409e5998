package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/utils"
	"gorm.io/gorm"
)

// SupplierPicker chooses the supplier for an auto-created replenishment
// order. Pluggable so the picking rule (lead time, cost, contract) can change
// without touching the reservation engine.
type SupplierPicker interface {
	PickSupplier(ctx context.Context) (*models.Supplier, error)
}

// lowestIdActiveSupplier picks the active supplier with the smallest id,
// which makes auto purchase orders deterministic.
type lowestIdActiveSupplier struct{}

func (lowestIdActiveSupplier) PickSupplier(ctx context.Context) (*models.Supplier, error) {
	suppliers, err := models.GetActiveSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	if len(suppliers) == 0 {
		return nil, nil
	}
	return suppliers[0], nil
}

var DefaultSupplierPicker SupplierPicker = lowestIdActiveSupplier{}

// LineReservationResult reports the reservation outcome of one order line.
type LineReservationResult struct {
	SoLineId          int     `json:"so_line_id"`
	ProductId         int     `json:"product_id"`
	Requested         int     `json:"requested"`
	Reserved          int     `json:"reserved"`
	Shortfall         int     `json:"shortfall"`
	BackorderId       *int    `json:"backorder_id"`
	TriggeredPoNumber *string `json:"triggered_po_number"`
}

type ReservationResult struct {
	SalesOrderId  int                     `json:"sales_order_id"`
	OrderNumber   string                  `json:"order_number"`
	Status        models.SalesOrderStatus `json:"status"`
	FullyReserved bool                    `json:"fully_reserved"`
	HasBackorders bool                    `json:"has_backorders"`
	Summary       string                  `json:"summary"`
	Lines         []LineReservationResult `json:"lines"`
}

// ProcessOrderReservation runs the reservation pass over a CREATED sales
// order. Per line: drain the preferred warehouse, spill into other active
// warehouses richest first, and backorder the rest. A line that could not
// reserve a single unit additionally triggers a DRAFT replenishment purchase
// order against the preferred warehouse. Everything happens in one
// transaction over FOR UPDATE ledger rows.
func ProcessOrderReservation(ctx context.Context, salesOrderId int, picker SupplierPicker) (*ReservationResult, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	if picker == nil {
		picker = DefaultSupplierPicker
	}

	tx := db.Begin()

	order, err := utils.FetchModelForUpdate[models.SalesOrder](tx.WithContext(ctx), salesOrderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.Status != models.SalesOrderStatusCreated {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"sales order %s is %s; only CREATED orders can be reserved", order.OrderNumber, order.Status)
	}

	var lines []models.SoLine
	if err := tx.WithContext(ctx).
		Where("sales_order_id = ?", order.ID).
		Order("id").
		Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	result := ReservationResult{
		SalesOrderId: order.ID,
		OrderNumber:  order.OrderNumber,
	}

	for i := range lines {
		line := &lines[i]
		alreadyBackordered, err := models.OutstandingBackorderQtyForLine(tx.WithContext(ctx), line.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		remaining := line.Quantity - line.ReservedQuantity - alreadyBackordered
		if remaining <= 0 {
			continue
		}

		lineResult, err := reserveLine(ctx, tx, order, line, remaining, picker)
		if err != nil {
			tx.Rollback()
			config.LogError(logger, "workflow", "ProcessOrderReservation", "reserve line", line.ID, err)
			return nil, err
		}
		result.Lines = append(result.Lines, *lineResult)
	}

	status, err := models.RefreshSalesOrderStatus(tx.WithContext(ctx), order.ID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	result.Status = status

	requested, reserved := 0, 0
	result.FullyReserved = true
	for _, lineResult := range result.Lines {
		requested += lineResult.Requested
		reserved += lineResult.Reserved
		if lineResult.Shortfall > 0 {
			result.FullyReserved = false
		}
		if lineResult.BackorderId != nil {
			result.HasBackorders = true
		}
	}
	result.Summary = fmt.Sprintf("reserved %d of %d requested units", reserved, requested)
	if result.HasBackorders {
		result.Summary += fmt.Sprintf("; %d unit(s) backordered", requested-reserved)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func reserveLine(ctx context.Context, tx *gorm.DB, order *models.SalesOrder, line *models.SoLine, remaining int, picker SupplierPicker) (*LineReservationResult, error) {

	preferredRecord, err := models.LockOrCreateInventoryRecord(tx, line.ProductId, order.PreferredWarehouseId)
	if err != nil {
		return nil, err
	}
	otherRecords, err := models.LockOtherInventoryRecords(tx, line.ProductId, order.PreferredWarehouseId)
	if err != nil {
		return nil, err
	}

	recordByWarehouse := map[int]*models.InventoryRecord{
		preferredRecord.WarehouseId: preferredRecord,
	}
	others := make([]StockAvailability, 0, len(otherRecords))
	for _, record := range otherRecords {
		recordByWarehouse[record.WarehouseId] = record
		others = append(others, StockAvailability{
			WarehouseId: record.WarehouseId,
			Available:   record.Available(),
		})
	}

	allocations, shortfall := PlanLineAllocation(remaining, StockAvailability{
		WarehouseId: preferredRecord.WarehouseId,
		Available:   preferredRecord.Available(),
	}, others)

	reservedTotal := 0
	for _, allocation := range allocations {
		record := recordByWarehouse[allocation.WarehouseId]
		if err := record.Reserve(allocation.Quantity); err != nil {
			return nil, err
		}
		if err := tx.Model(record).Update("QtyReserved", record.QtyReserved).Error; err != nil {
			return nil, err
		}
		if err := models.AddLineReservation(tx, line.ID, allocation.WarehouseId, allocation.Quantity); err != nil {
			return nil, err
		}
		reservedTotal += allocation.Quantity
	}

	if reservedTotal > 0 {
		if err := models.AddSoLineReserved(tx, line.ID, reservedTotal); err != nil {
			return nil, err
		}
		line.ReservedQuantity += reservedTotal
	}

	lineResult := LineReservationResult{
		SoLineId:  line.ID,
		ProductId: line.ProductId,
		Requested: remaining,
		Reserved:  reservedTotal,
		Shortfall: shortfall,
	}

	if shortfall > 0 {
		backorder, err := models.CreateBackorder(tx, order.ID, line.ID, line.ProductId, order.PreferredWarehouseId,
			shortfall, fmt.Sprintf("auto-created during reservation of %s", order.OrderNumber))
		if err != nil {
			return nil, err
		}
		lineResult.BackorderId = &backorder.ID

		// A line with zero reserved units means the network is dry for this
		// product; size a replenishment order for the whole queue.
		if reservedTotal == 0 {
			poNumber, err := triggerAutoPurchaseOrder(ctx, tx, order, line, backorder, shortfall, picker)
			if err != nil {
				return nil, err
			}
			lineResult.TriggeredPoNumber = poNumber
		}
	}

	return &lineResult, nil
}

func triggerAutoPurchaseOrder(ctx context.Context, tx *gorm.DB, order *models.SalesOrder, line *models.SoLine, backorder *models.Backorder, shortfall int, picker SupplierPicker) (*string, error) {
	logger := config.GetLogger()

	totalOutstanding, err := models.TotalOutstandingBackorderQty(tx, line.ProductId, order.PreferredWarehouseId)
	if err != nil {
		return nil, err
	}
	poQty := utils.MaxInt(shortfall, totalOutstanding) + config.SafetyStockQuantity()

	supplier, err := picker.PickSupplier(ctx)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		config.LogError(logger, "workflow", "triggerAutoPurchaseOrder",
			"no active supplier for replenishment", line.ProductId,
			errors.New("no active supplier available"))
		if err := models.AppendBackorderNote(tx, backorder,
			"WARNING: no active supplier; replenishment order was not created"); err != nil {
			return nil, err
		}
		return nil, nil
	}

	product, err := utils.FetchModel[models.Product](ctx, line.ProductId)
	if err != nil {
		return nil, err
	}

	po, err := models.CreateAutoPurchaseOrder(ctx, tx, supplier.ID, order.PreferredWarehouseId,
		line.ProductId, poQty, product.CostPrice,
		fmt.Sprintf("auto-created for backorder %d (%s)", backorder.ID, order.OrderNumber))
	if err != nil {
		return nil, err
	}
	if err := models.LinkBackorderPurchaseOrder(tx, backorder, po.ID); err != nil {
		return nil, err
	}
	return &po.PoNumber, nil
}
