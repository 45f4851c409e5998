package models

import (
	"log"

	"github.com/distfocus/logistics_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Product{}, &Warehouse{}, &Supplier{}, &Client{},
		&InventoryRecord{}, &LineReservation{}, &InventoryMovement{},
		&SalesOrder{}, &SoLine{},
		&Backorder{},
		&PurchaseOrder{}, &PoLine{},
		&Shipment{}, &ShipmentLine{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
