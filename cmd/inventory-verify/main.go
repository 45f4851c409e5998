package main

import (
	"context"
	"fmt"
	"os"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
)

type reservedMismatchRow struct {
	ProductId    int
	WarehouseId  int
	QtyReserved  int
	BreakdownQty int
}

// Audits the stock ledger:
//  1. every ledger row honors 0 <= qty_reserved <= qty_on_hand
//  2. ledger qty_reserved equals the per-line reservation breakdown
//  3. no order line carries more breakdown than it ever reserved
//  4. no order line reserved more than it ordered
//  5. no backorder is over-fulfilled
//
// Exits non-zero when any check fails, so it can gate deploys.
func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	problems := 0

	var badRecords []models.InventoryRecord
	if err := db.WithContext(ctx).
		Where("qty_reserved < 0 OR qty_reserved > qty_on_hand OR qty_on_hand < 0").
		Find(&badRecords).Error; err != nil {
		fmt.Fprintf(os.Stderr, "ledger scan: %v\n", err)
		os.Exit(1)
	}
	for _, r := range badRecords {
		problems++
		fmt.Printf("INVARIANT: record p=%d w=%d on_hand=%d reserved=%d\n",
			r.ProductId, r.WarehouseId, r.QtyOnHand, r.QtyReserved)
	}

	var mismatches []reservedMismatchRow
	if err := db.WithContext(ctx).Raw(`
SELECT
    ir.product_id,
    ir.warehouse_id,
    ir.qty_reserved,
    COALESCE(lr.total, 0) AS breakdown_qty
FROM inventory_records ir
LEFT JOIN (
    SELECT so_lines.product_id, line_reservations.warehouse_id, SUM(line_reservations.quantity) AS total
    FROM line_reservations
    JOIN so_lines ON so_lines.id = line_reservations.so_line_id
    GROUP BY so_lines.product_id, line_reservations.warehouse_id
) lr ON lr.product_id = ir.product_id AND lr.warehouse_id = ir.warehouse_id
WHERE ir.qty_reserved != COALESCE(lr.total, 0);
`).Scan(&mismatches).Error; err != nil {
		fmt.Fprintf(os.Stderr, "breakdown scan: %v\n", err)
		os.Exit(1)
	}
	for _, m := range mismatches {
		problems++
		fmt.Printf("CONSERVATION: record p=%d w=%d reserved=%d but breakdown sums to %d\n",
			m.ProductId, m.WarehouseId, m.QtyReserved, m.BreakdownQty)
	}

	var overReservedLines []models.SoLine
	if err := db.WithContext(ctx).Raw(`
SELECT so_lines.*
FROM so_lines
JOIN (
    SELECT so_line_id, SUM(quantity) AS total
    FROM line_reservations
    GROUP BY so_line_id
) lr ON lr.so_line_id = so_lines.id
WHERE lr.total > so_lines.reserved_quantity;
`).Scan(&overReservedLines).Error; err != nil {
		fmt.Fprintf(os.Stderr, "line scan: %v\n", err)
		os.Exit(1)
	}
	for _, l := range overReservedLines {
		problems++
		fmt.Printf("LINE: so_line %d reserved_quantity=%d below its warehouse breakdown\n", l.ID, l.ReservedQuantity)
	}

	var overCommittedLines []models.SoLine
	if err := db.WithContext(ctx).
		Where("reserved_quantity > quantity OR reserved_quantity < 0").
		Find(&overCommittedLines).Error; err != nil {
		fmt.Fprintf(os.Stderr, "line cap scan: %v\n", err)
		os.Exit(1)
	}
	for _, l := range overCommittedLines {
		problems++
		fmt.Printf("LINE: so_line %d reserved_quantity=%d exceeds ordered quantity %d\n",
			l.ID, l.ReservedQuantity, l.Quantity)
	}

	var overFulfilled []models.Backorder
	if err := db.WithContext(ctx).
		Where("fulfilled_quantity > quantity OR fulfilled_quantity < 0").
		Find(&overFulfilled).Error; err != nil {
		fmt.Fprintf(os.Stderr, "backorder scan: %v\n", err)
		os.Exit(1)
	}
	for _, b := range overFulfilled {
		problems++
		fmt.Printf("BACKORDER: %d fulfilled=%d of %d\n", b.ID, b.FulfilledQuantity, b.Quantity)
	}

	if problems > 0 {
		fmt.Printf("%d problem(s) found\n", problems)
		os.Exit(1)
	}
	fmt.Println("inventory ledger verified: no problems found")
}
