package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
	"github.com/distfocus/logistics_backend/workflow"
	"github.com/shopspring/decimal"
)

// Seeds a small demo network: three warehouses, four products, two suppliers,
// one client, and opening stock. Intended for local development only.
func main() {
	withStock := flag.Bool("with-stock", true, "seed opening stock via inventory adjustments")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()

	warehouses := []models.NewWarehouse{
		{Code: "WH-CENTRAL", Name: "Central Distribution Center", Address: "1 Harbor Rd"},
		{Code: "WH-NORTH", Name: "North Hub", Address: "22 Summit Ave"},
		{Code: "WH-SOUTH", Name: "South Hub", Address: "9 Delta St"},
	}
	warehouseIds := make([]int, 0, len(warehouses))
	for _, input := range warehouses {
		w, err := models.CreateWarehouse(ctx, &input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed warehouse %s: %v\n", input.Code, err)
			os.Exit(1)
		}
		warehouseIds = append(warehouseIds, w.ID)
		fmt.Printf("warehouse %s (id=%d)\n", w.Code, w.ID)
	}

	products := []models.NewProduct{
		{Sku: "CHAIR-STD", Name: "Standard Office Chair", CostPrice: decimal.NewFromInt(45), SellingPrice: decimal.NewFromInt(89)},
		{Sku: "DESK-140", Name: "Desk 140cm", CostPrice: decimal.NewFromInt(110), SellingPrice: decimal.NewFromInt(219)},
		{Sku: "LAMP-LED", Name: "LED Desk Lamp", CostPrice: decimal.NewFromInt(12), SellingPrice: decimal.NewFromInt(29)},
		{Sku: "SHELF-5T", Name: "5-Tier Shelf", CostPrice: decimal.NewFromInt(60), SellingPrice: decimal.NewFromInt(129)},
	}
	productIds := make([]int, 0, len(products))
	for _, input := range products {
		p, err := models.CreateProduct(ctx, &input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed product %s: %v\n", input.Sku, err)
			os.Exit(1)
		}
		productIds = append(productIds, p.ID)
		fmt.Printf("product %s (id=%d)\n", p.Sku, p.ID)
	}

	suppliers := []models.NewSupplier{
		{Name: "Prime Furnishing Co", ContactPerson: "A. Ortega", Email: "sales@primefurnishing.example", LeadTimeDays: 7},
		{Name: "Eastline Imports", ContactPerson: "L. Chen", Email: "orders@eastline.example", LeadTimeDays: 14},
	}
	for _, input := range suppliers {
		s, err := models.CreateSupplier(ctx, &input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed supplier %s: %v\n", input.Name, err)
			os.Exit(1)
		}
		fmt.Printf("supplier %s (id=%d)\n", s.Name, s.ID)
	}

	client, err := models.CreateClient(ctx, &models.NewClient{
		Name:            "Metro Office Outfitters",
		Email:           "purchasing@metrooffice.example",
		ShippingAddress: "810 Commerce Blvd",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed client: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("client %s (id=%d)\n", client.Name, client.ID)

	if *withStock {
		for _, productId := range productIds {
			for i, warehouseId := range warehouseIds {
				qty := 50 - 15*i
				if qty <= 0 {
					continue
				}
				if _, err := workflow.AdjustInventory(ctx, &workflow.NewAdjustment{
					ProductId:   productId,
					WarehouseId: warehouseId,
					Delta:       qty,
					Note:        "opening stock (demo seed)",
				}); err != nil {
					fmt.Fprintf(os.Stderr, "seed stock p=%d w=%d: %v\n", productId, warehouseId, err)
					os.Exit(1)
				}
			}
		}
		fmt.Println("opening stock seeded")
	}

	fmt.Println("demo data seeded")
}
