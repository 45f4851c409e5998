package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/utils"
	"gorm.io/gorm"
)

type NewShipment struct {
	SalesOrderId    int        `json:"sales_order_id" binding:"required"`
	Carrier         string     `json:"carrier"`
	PlannedShipDate *time.Time `json:"planned_ship_date"`
	Notes           string     `json:"notes"`
}

type DispatchInput struct {
	Carrier        string `json:"carrier"`
	TrackingNumber string `json:"tracking_number"`
}

// CreateShipment plans a shipment covering everything currently reserved but
// not yet put on an earlier shipment of the order. SHIPPED orders are accepted
// alongside RESERVED ones: backorder fulfillment can grow a line's reservation
// after a first dispatch, and that stock goes out on a follow-up shipment.
// Planning touches no stock; the ledger debit happens on dispatch.
func CreateShipment(ctx context.Context, input *NewShipment) (*models.Shipment, error) {
	db := config.GetDB()

	tx := db.Begin()

	order, err := utils.FetchModelForUpdate[models.SalesOrder](tx.WithContext(ctx), input.SalesOrderId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if order.Status != models.SalesOrderStatusReserved && order.Status != models.SalesOrderStatusShipped {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"sales order %s is %s; nothing is reserved for shipping", order.OrderNumber, order.Status)
	}

	var lines []models.SoLine
	if err := tx.WithContext(ctx).
		Where("sales_order_id = ?", order.ID).
		Order("id").
		Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var shipmentLines []models.ShipmentLine
	for _, line := range lines {
		shipped, err := shippedQuantityForLine(tx, line.ID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		shippable := line.ReservedQuantity - shipped
		if shippable <= 0 {
			continue
		}
		shipmentLines = append(shipmentLines, models.ShipmentLine{
			SoLineId:  line.ID,
			ProductId: line.ProductId,
			Quantity:  shippable,
		})
	}
	if len(shipmentLines) == 0 {
		tx.Rollback()
		return nil, utils.NewValidationError(
			"sales order %s has no reserved quantity left to ship", order.OrderNumber)
	}

	plannedShipDate := time.Now().UTC().Add(24 * time.Hour)
	if input.PlannedShipDate != nil {
		plannedShipDate = *input.PlannedShipDate
	} else if order.ExpectedDeliveryDate != nil {
		plannedShipDate = *order.ExpectedDeliveryDate
	}

	seqNo, err := utils.GetSequence[models.Shipment](ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	shipment := models.Shipment{
		ShipmentNumber:  fmt.Sprintf("SHP-%06d", seqNo),
		SequenceNo:      seqNo,
		SalesOrderId:    order.ID,
		Status:          models.ShipmentStatusPlanned,
		Carrier:         input.Carrier,
		PlannedShipDate: plannedShipDate,
		Notes:           input.Notes,
		Lines:           shipmentLines,
	}
	if err := tx.WithContext(ctx).Create(&shipment).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// shippedQuantityForLine sums what earlier live shipments already carry for
// one order line. Cancelled shipments do not count.
func shippedQuantityForLine(tx *gorm.DB, soLineId int) (int, error) {
	var total *int
	err := tx.Model(&models.ShipmentLine{}).
		Select("sum(shipment_lines.quantity)").
		Joins("JOIN shipments ON shipments.id = shipment_lines.shipment_id").
		Where("shipment_lines.so_line_id = ? AND shipments.status != ?",
			soLineId, models.ShipmentStatusCancelled).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return utils.DereferencePtr(total), nil
}

// ShipShipment dispatches a PLANNED shipment: every line debits its reserved
// stock from the warehouses holding the reservation, writes an OUTBOUND
// movement per debit, and the sales order moves to SHIPPED. Insufficient
// reserved stock anywhere aborts the whole dispatch.
func ShipShipment(ctx context.Context, shipmentId int, input *DispatchInput) (*models.Shipment, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	tx := db.Begin()

	shipment, err := utils.FetchModelForUpdate[models.Shipment](tx.WithContext(ctx), shipmentId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if shipment.Status != models.ShipmentStatusPlanned {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"shipment %s is %s; only PLANNED shipments can be dispatched", shipment.ShipmentNumber, shipment.Status)
	}

	var lines []models.ShipmentLine
	if err := tx.WithContext(ctx).
		Where("shipment_id = ?", shipment.ID).
		Order("id").
		Find(&lines).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	for i := range lines {
		line := &lines[i]
		if err := debitShipmentLine(ctx, tx, shipment, line); err != nil {
			tx.Rollback()
			config.LogError(logger, "workflow", "ShipShipment", "debit shipment line", line.ID, err)
			return nil, err
		}
		line.ShippedQuantity = line.Quantity
		if err := tx.Model(line).Update("ShippedQuantity", line.ShippedQuantity).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	now := time.Now().UTC()
	shipment.Status = models.ShipmentStatusShipped
	shipment.ShippedAt = &now
	updates := map[string]interface{}{
		"Status":    models.ShipmentStatusShipped,
		"ShippedAt": &now,
	}
	if input != nil {
		if input.Carrier != "" {
			shipment.Carrier = input.Carrier
			updates["Carrier"] = input.Carrier
		}
		if input.TrackingNumber != "" {
			shipment.TrackingNumber = input.TrackingNumber
			updates["TrackingNumber"] = input.TrackingNumber
		}
	}
	if err := tx.WithContext(ctx).Model(shipment).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&models.SalesOrder{}).
		Where("id = ?", shipment.SalesOrderId).
		Update("Status", models.SalesOrderStatusShipped).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

// debitShipmentLine walks the warehouse breakdown of the order line's
// reservation and debits each holding warehouse until the shipment line
// quantity is covered.
func debitShipmentLine(ctx context.Context, tx *gorm.DB, shipment *models.Shipment, line *models.ShipmentLine) error {
	reservations, err := models.LockLineReservations(tx, line.SoLineId)
	if err != nil {
		return err
	}

	remaining := line.Quantity
	for _, reservation := range reservations {
		if remaining <= 0 {
			break
		}
		qty := utils.MinInt(remaining, reservation.Quantity)

		release, _ := utils.StockKeyLock(ctx, line.ProductId, reservation.WarehouseId,
			"workflow", "debitShipmentLine")
		record, err := models.LockInventoryRecord(tx, line.ProductId, reservation.WarehouseId)
		if err != nil {
			release()
			return err
		}
		if err := record.DebitShipment(qty); err != nil {
			release()
			return err
		}
		if err := tx.Model(record).Updates(map[string]interface{}{
			"QtyOnHand":   record.QtyOnHand,
			"QtyReserved": record.QtyReserved,
		}).Error; err != nil {
			release()
			return err
		}
		if err := models.ConsumeLineReservation(tx, reservation, qty); err != nil {
			release()
			return err
		}
		if err := models.RecordMovement(ctx, tx, line.ProductId, reservation.WarehouseId,
			models.MovementTypeOutbound, qty, shipment.ShipmentNumber,
			fmt.Sprintf("shipment dispatch (carrier=%s tracking=%s)", shipment.Carrier, shipment.TrackingNumber)); err != nil {
			release()
			return err
		}
		release()

		remaining -= qty
	}

	if remaining > 0 {
		return utils.NewResourceExhaustionError(
			"shipment %s line %d needs %d more reserved units of product %d",
			shipment.ShipmentNumber, line.ID, remaining, line.ProductId)
	}
	return nil
}

// MarkShipmentDelivered closes a SHIPPED shipment. When it was the last live
// shipment of the order still underway, the order itself becomes DELIVERED.
func MarkShipmentDelivered(ctx context.Context, shipmentId int) (*models.Shipment, error) {
	db := config.GetDB()

	tx := db.Begin()

	shipment, err := utils.FetchModelForUpdate[models.Shipment](tx.WithContext(ctx), shipmentId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if shipment.Status != models.ShipmentStatusShipped {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"shipment %s is %s; only SHIPPED shipments can be delivered", shipment.ShipmentNumber, shipment.Status)
	}

	now := time.Now().UTC()
	shipment.Status = models.ShipmentStatusDelivered
	shipment.DeliveredAt = &now
	if err := tx.WithContext(ctx).Model(shipment).Updates(map[string]interface{}{
		"Status":      models.ShipmentStatusDelivered,
		"DeliveredAt": &now,
	}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var undelivered int64
	if err := tx.WithContext(ctx).Model(&models.Shipment{}).
		Where("sales_order_id = ? AND status NOT IN ?", shipment.SalesOrderId,
			[]models.ShipmentStatus{models.ShipmentStatusDelivered, models.ShipmentStatusCancelled}).
		Count(&undelivered).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if undelivered == 0 {
		if err := tx.WithContext(ctx).Model(&models.SalesOrder{}).
			Where("id = ?", shipment.SalesOrderId).
			Update("Status", models.SalesOrderStatusDelivered).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

// CancelShipment voids a PLANNED shipment. Nothing was debited yet, so the
// reservations simply stay available for a future shipment.
func CancelShipment(ctx context.Context, shipmentId int) (*models.Shipment, error) {
	db := config.GetDB()

	tx := db.Begin()

	shipment, err := utils.FetchModelForUpdate[models.Shipment](tx.WithContext(ctx), shipmentId)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if shipment.Status != models.ShipmentStatusPlanned {
		tx.Rollback()
		return nil, utils.NewStateConflictError(
			"shipment %s is %s; only PLANNED shipments can be cancelled", shipment.ShipmentNumber, shipment.Status)
	}

	shipment.Status = models.ShipmentStatusCancelled
	if err := tx.WithContext(ctx).Model(shipment).Update("Status", models.ShipmentStatusCancelled).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return shipment, nil
}
