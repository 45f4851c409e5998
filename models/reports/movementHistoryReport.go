package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/xuri/excelize/v2"
)

type MovementSummaryResponse struct {
	ProductName string `json:"product_name"`
	ProductSku  string `json:"product_sku"`
	QtyIn       int    `json:"qty_in"`
	QtyOut      int    `json:"qty_out"`
	QtyAdjusted int    `json:"qty_adjusted"`
}

// GetMovementSummaryReport aggregates the movement trail per product:
// inbound receipts, outbound dispatches and adjustments, optionally scoped
// to one warehouse.
func GetMovementSummaryReport(ctx context.Context, warehouseId *int) ([]*MovementSummaryResponse, error) {

	sql := `
SELECT
    p.name AS product_name,
    p.sku AS product_sku,
    COALESCE(SUM(CASE WHEN im.movement_type = 'Inbound' THEN im.quantity ELSE 0 END), 0) AS qty_in,
    COALESCE(SUM(CASE WHEN im.movement_type = 'Outbound' THEN im.quantity ELSE 0 END), 0) AS qty_out,
    COALESCE(SUM(CASE WHEN im.movement_type = 'Adjustment' THEN im.quantity ELSE 0 END), 0) AS qty_adjusted
FROM products p
LEFT JOIN inventory_movements im ON im.product_id = p.id
    AND (@warehouseId = 0 OR im.warehouse_id = @warehouseId)
WHERE p.is_active = true
GROUP BY p.id, p.name, p.sku
ORDER BY p.name;
`

	wid := 0
	if warehouseId != nil {
		wid = *warehouseId
	}

	var results []*MovementSummaryResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"warehouseId": wid,
	}).Scan(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// ExportMovementHistoryXlsx streams the filtered movement trail as an xlsx
// workbook.
func ExportMovementHistoryXlsx(ctx context.Context, filter *models.MovementFilter, w io.Writer) error {

	data, err := models.GetInventoryMovements(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	sheetName := "Movements"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	// Add headers
	f.SetCellValue(sheetName, "A1", "Date")
	f.SetCellValue(sheetName, "B1", "Type")
	f.SetCellValue(sheetName, "C1", "ProductSku")
	f.SetCellValue(sheetName, "D1", "ProductName")
	f.SetCellValue(sheetName, "E1", "Warehouse")
	f.SetCellValue(sheetName, "F1", "Quantity")
	f.SetCellValue(sheetName, "G1", "Reference")
	f.SetCellValue(sheetName, "H1", "Note")

	// Add data
	for i, d := range data {
		row := fmt.Sprint(i + 2)
		f.SetCellValue(sheetName, "A"+row, d.CreatedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheetName, "B"+row, string(d.MovementType))
		f.SetCellValue(sheetName, "C"+row, d.Product.Sku)
		f.SetCellValue(sheetName, "D"+row, d.Product.Name)
		f.SetCellValue(sheetName, "E"+row, d.Warehouse.Code)
		f.SetCellValue(sheetName, "F"+row, d.Quantity)
		f.SetCellValue(sheetName, "G"+row, d.ReferenceNo)
		f.SetCellValue(sheetName, "H"+row, d.Note)
	}

	if err := f.Write(w); err != nil {
		return err
	}
	return nil
}
