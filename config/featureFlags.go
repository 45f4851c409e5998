package config

import (
	"os"
	"strconv"
	"strings"
)

// SafetyStockQuantity is the buffer quantity added on top of the shortfall
// when the reservation engine auto-creates a replenishment purchase order.
//
// Set via env:
// - SAFETY_STOCK_QTY (default 10)
func SafetyStockQuantity() int {
	v := strings.TrimSpace(os.Getenv("SAFETY_STOCK_QTY"))
	if v == "" {
		return 10
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 10
	}
	return n
}

// AutoReserveOnCreate chains the reservation pass directly after sales order
// creation, so a single API call creates and reserves. A reservation failure
// is reported in the response but never unwinds the created order.
//
// Set via env:
// - AUTO_RESERVE_ON_CREATE=false to disable (default enabled)
func AutoReserveOnCreate() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("AUTO_RESERVE_ON_CREATE")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
