package models

import (
	"time"

	"github.com/distfocus/logistics_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRecord is the stock ledger row for one (product, warehouse) key.
// Quantities are whole units. qty_reserved is the portion of qty_on_hand
// promised to sales orders, so 0 <= qty_reserved <= qty_on_hand always holds.
type InventoryRecord struct {
	ID          int       `gorm:"primary_key" json:"id"`
	ProductId   int       `gorm:"not null;uniqueIndex:product_warehouse_uniq,priority:1" json:"product_id"`
	Product     Product   `json:"product"`
	WarehouseId int       `gorm:"not null;uniqueIndex:product_warehouse_uniq,priority:2" json:"warehouse_id"`
	Warehouse   Warehouse `json:"warehouse"`
	QtyOnHand   int       `gorm:"not null;default:0" json:"qty_on_hand"`
	QtyReserved int       `gorm:"not null;default:0" json:"qty_reserved"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Available is the sellable quantity: on hand minus already reserved.
func (r *InventoryRecord) Available() int {
	return r.QtyOnHand - r.QtyReserved
}

// Reserve moves qty units from available into reserved.
func (r *InventoryRecord) Reserve(qty int) error {
	if qty <= 0 {
		return utils.NewValidationError("reserve quantity must be positive, got %d", qty)
	}
	if qty > r.Available() {
		return utils.NewResourceExhaustionError(
			"cannot reserve %d units for product %d in warehouse %d: only %d available",
			qty, r.ProductId, r.WarehouseId, r.Available())
	}
	r.QtyReserved += qty
	return nil
}

// Receive adds qty units to on-hand stock.
func (r *InventoryRecord) Receive(qty int) error {
	if qty <= 0 {
		return utils.NewValidationError("receive quantity must be positive, got %d", qty)
	}
	r.QtyOnHand += qty
	return nil
}

// DebitShipment removes qty units that were previously reserved: both
// on-hand and reserved decrease, so the record invariant is preserved.
func (r *InventoryRecord) DebitShipment(qty int) error {
	if qty <= 0 {
		return utils.NewValidationError("debit quantity must be positive, got %d", qty)
	}
	if qty > r.QtyReserved {
		return utils.NewResourceExhaustionError(
			"cannot debit %d units for product %d in warehouse %d: only %d reserved",
			qty, r.ProductId, r.WarehouseId, r.QtyReserved)
	}
	r.QtyOnHand -= qty
	r.QtyReserved -= qty
	return nil
}

// Release returns qty reserved units back to available.
func (r *InventoryRecord) Release(qty int) error {
	if qty <= 0 {
		return utils.NewValidationError("release quantity must be positive, got %d", qty)
	}
	if qty > r.QtyReserved {
		return utils.NewResourceExhaustionError(
			"cannot release %d units for product %d in warehouse %d: only %d reserved",
			qty, r.ProductId, r.WarehouseId, r.QtyReserved)
	}
	r.QtyReserved -= qty
	return nil
}

// LockInventoryRecord fetches the ledger row for one stock key with a
// FOR UPDATE lock inside an open transaction. Returns RecordNotFound when
// the key has never held stock.
func LockInventoryRecord(tx *gorm.DB, productId int, warehouseId int) (*InventoryRecord, error) {
	var record InventoryRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND warehouse_id = ?", productId, warehouseId).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// LockOrCreateInventoryRecord fetches the ledger row with a FOR UPDATE lock,
// creating a zero row first if the stock key has never been touched. The
// unique (product_id, warehouse_id) index makes a concurrent double-create
// fail on one side, which the caller's transaction retry absorbs.
func LockOrCreateInventoryRecord(tx *gorm.DB, productId int, warehouseId int) (*InventoryRecord, error) {
	var record InventoryRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(InventoryRecord{ProductId: productId, WarehouseId: warehouseId}).
		FirstOrCreate(&record, InventoryRecord{
			ProductId:   productId,
			WarehouseId: warehouseId,
			QtyOnHand:   0,
			QtyReserved: 0,
		}).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LockOtherInventoryRecords locks the ledger rows of every OTHER active
// warehouse that still has sellable stock of the product, richest first.
// Warehouse id breaks ties so the fallback scan order is deterministic.
func LockOtherInventoryRecords(tx *gorm.DB, productId int, excludeWarehouseId int) ([]*InventoryRecord, error) {
	var records []*InventoryRecord
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "inventory_records"}}).
		Joins("JOIN warehouses ON warehouses.id = inventory_records.warehouse_id AND warehouses.is_active = true").
		Where("inventory_records.product_id = ? AND inventory_records.warehouse_id != ?", productId, excludeWarehouseId).
		Where("inventory_records.qty_on_hand - inventory_records.qty_reserved > 0").
		Order("inventory_records.qty_on_hand - inventory_records.qty_reserved DESC, inventory_records.warehouse_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// LineReservation records how much of one sales order line is reserved in
// which warehouse. Reservation may spill across warehouses, so the dispatch
// debit has to know the per-warehouse breakdown; the sum over a line equals
// the line's reserved_quantity.
type LineReservation struct {
	ID          int       `gorm:"primary_key" json:"id"`
	SoLineId    int       `gorm:"not null;uniqueIndex:line_warehouse_uniq,priority:1" json:"so_line_id"`
	WarehouseId int       `gorm:"not null;uniqueIndex:line_warehouse_uniq,priority:2" json:"warehouse_id"`
	Warehouse   Warehouse `json:"warehouse"`
	Quantity    int       `gorm:"not null;default:0" json:"quantity"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// AddLineReservation accumulates qty onto the (line, warehouse) breakdown row.
func AddLineReservation(tx *gorm.DB, soLineId int, warehouseId int, qty int) error {
	if qty <= 0 {
		return utils.NewValidationError("line reservation quantity must be positive, got %d", qty)
	}
	var row LineReservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(LineReservation{SoLineId: soLineId, WarehouseId: warehouseId}).
		FirstOrCreate(&row, LineReservation{
			SoLineId:    soLineId,
			WarehouseId: warehouseId,
			Quantity:    0,
		}).Error
	if err != nil {
		return err
	}
	return tx.Model(&row).Update("Quantity", gorm.Expr("quantity + ?", qty)).Error
}

// LockLineReservations locks and returns the warehouse breakdown of one
// sales order line, ordered by warehouse id for a stable debit order.
func LockLineReservations(tx *gorm.DB, soLineId int) ([]*LineReservation, error) {
	var rows []*LineReservation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("so_line_id = ? AND quantity > 0", soLineId).
		Order("warehouse_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ConsumeLineReservation subtracts qty from one breakdown row after the
// matching ledger debit succeeded.
func ConsumeLineReservation(tx *gorm.DB, row *LineReservation, qty int) error {
	if qty <= 0 || qty > row.Quantity {
		return utils.NewValidationError(
			"cannot consume %d from line reservation %d holding %d", qty, row.ID, row.Quantity)
	}
	return tx.Model(row).Update("Quantity", gorm.Expr("quantity - ?", qty)).Error
}
