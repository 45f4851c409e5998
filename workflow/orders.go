package workflow

import (
	"context"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/models"
)

// SalesOrderWithReservation is the composite result of the create-then-reserve
// flow. A reservation failure is reported here, never unwinds the order.
type SalesOrderWithReservation struct {
	SalesOrder       *models.SalesOrder `json:"sales_order"`
	Reservation      *ReservationResult `json:"reservation,omitempty"`
	ReservationError string             `json:"reservation_error,omitempty"`
}

// CreateSalesOrderWithReservation creates the order and, unless disabled via
// AUTO_RESERVE_ON_CREATE, immediately runs the reservation pass over it.
func CreateSalesOrderWithReservation(ctx context.Context, input *models.NewSalesOrder) (*SalesOrderWithReservation, error) {
	logger := config.GetLogger()

	order, err := models.CreateSalesOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	result := SalesOrderWithReservation{SalesOrder: order}
	if !config.AutoReserveOnCreate() {
		return &result, nil
	}

	reservation, err := ProcessOrderReservation(ctx, order.ID, nil)
	if err != nil {
		config.LogError(logger, "workflow", "CreateSalesOrderWithReservation",
			"reservation after create", order.OrderNumber, err)
		result.ReservationError = err.Error()
		return &result, nil
	}
	result.Reservation = reservation
	order.Status = reservation.Status
	return &result, nil
}
