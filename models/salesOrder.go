package models

import (
	"context"
	"fmt"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SalesOrder struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	OrderNumber          string           `gorm:"size:100;uniqueIndex;not null" json:"order_number"`
	SequenceNo           int64            `gorm:"not null" json:"sequence_no"`
	ClientId             int              `gorm:"index;not null" json:"client_id"`
	Client               Client           `json:"client"`
	PreferredWarehouseId int              `gorm:"index;not null" json:"preferred_warehouse_id"`
	PreferredWarehouse   Warehouse        `gorm:"foreignKey:PreferredWarehouseId" json:"preferred_warehouse"`
	Status               SalesOrderStatus `gorm:"size:30;not null" json:"status"`
	ExpectedDeliveryDate *time.Time       `json:"expected_delivery_date"`
	Notes                string           `gorm:"type:text" json:"notes"`
	TotalAmount          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	CreatedAt            time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
	Lines                []SoLine         `gorm:"foreignKey:SalesOrderId" json:"lines"`
}

type SoLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	SalesOrderId     int             `gorm:"index;not null" json:"sales_order_id"`
	ProductId        int             `gorm:"not null" json:"product_id"`
	Product          Product         `json:"product"`
	Quantity         int             `gorm:"not null" json:"quantity"`
	ReservedQuantity int             `gorm:"not null;default:0" json:"reserved_quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

type NewSalesOrder struct {
	ClientId             int             `json:"client_id" binding:"required"`
	PreferredWarehouseId int             `json:"preferred_warehouse_id" binding:"required"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date"`
	Notes                string          `json:"notes"`
	Lines                []NewSoLine     `json:"lines" binding:"required,min=1,dive"`
}

type NewSoLine struct {
	ProductId int              `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,min=1"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

func (input *NewSalesOrder) validate(ctx context.Context) error {
	if err := utils.ValidateActiveResourceId[Client](ctx, input.ClientId); err != nil {
		return utils.NewValidationError("client %d not found or inactive", input.ClientId)
	}
	if err := utils.ValidateActiveResourceId[Warehouse](ctx, input.PreferredWarehouseId); err != nil {
		return utils.NewValidationError("warehouse %d not found or inactive", input.PreferredWarehouseId)
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return utils.NewValidationError("line quantity must be positive, got %d", line.Quantity)
		}
		if err := utils.ValidateActiveResourceId[Product](ctx, line.ProductId); err != nil {
			return utils.NewValidationError("product %d not found or inactive", line.ProductId)
		}
	}
	return nil
}

// CreateSalesOrder validates the input, snapshots unit prices from the product
// catalog when the caller did not send one, and stores the order as CREATED.
// Reservation is a separate pass (see workflow.ProcessOrderReservation).
func CreateSalesOrder(ctx context.Context, input *NewSalesOrder) (*SalesOrder, error) {
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	var lines []SoLine
	var totalAmount decimal.Decimal
	for _, item := range input.Lines {
		unitPrice := decimal.Zero
		if item.UnitPrice != nil {
			unitPrice = *item.UnitPrice
		}
		if unitPrice.IsZero() {
			product, err := utils.FetchModel[Product](ctx, item.ProductId)
			if err != nil {
				return nil, err
			}
			unitPrice = product.SellingPrice
		}
		if unitPrice.LessThanOrEqual(decimal.Zero) {
			return nil, utils.NewValidationError("product %d has no selling price; send unit_price", item.ProductId)
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		lines = append(lines, SoLine{
			ProductId: item.ProductId,
			Quantity:  item.Quantity,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
		totalAmount = totalAmount.Add(lineTotal)
	}

	salesOrder := SalesOrder{
		ClientId:             input.ClientId,
		PreferredWarehouseId: input.PreferredWarehouseId,
		Status:               SalesOrderStatusCreated,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
		Notes:                input.Notes,
		TotalAmount:          totalAmount,
		Lines:                lines,
	}

	tx := db.Begin()
	seqNo, err := utils.GetSequence[SalesOrder](ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	salesOrder.SequenceNo = seqNo
	salesOrder.OrderNumber = fmt.Sprintf("SO-%06d", seqNo)

	if err := tx.WithContext(ctx).Create(&salesOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &salesOrder, nil
}

// AddSoLineReserved bumps a line's reserved quantity inside the caller's
// transaction. reserved_quantity only ever grows; shipping consumes the
// reservation from the ledger and the per-warehouse breakdown, not the line.
// The WHERE guard keeps reserved_quantity from ever exceeding the ordered
// quantity: an increment that would cross it affects zero rows and errors.
func AddSoLineReserved(tx *gorm.DB, soLineId int, qty int) error {
	if qty <= 0 {
		return utils.NewValidationError("reserved increment must be positive, got %d", qty)
	}
	result := tx.Model(&SoLine{}).
		Where("id = ? AND reserved_quantity + ? <= quantity", soLineId, qty).
		Update("ReservedQuantity", gorm.Expr("reserved_quantity + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NewValidationError(
			"reserving %d more units on line %d would exceed its ordered quantity", qty, soLineId)
	}
	return nil
}

// RefreshSalesOrderStatus recomputes a CREATED order's status after a
// reservation pass: any line with reserved stock moves the order to RESERVED.
func RefreshSalesOrderStatus(tx *gorm.DB, salesOrderId int) (SalesOrderStatus, error) {
	var order SalesOrder
	if err := tx.Preload("Lines").First(&order, salesOrderId).Error; err != nil {
		return "", err
	}
	if order.Status != SalesOrderStatusCreated {
		return order.Status, nil
	}
	for _, line := range order.Lines {
		if line.ReservedQuantity > 0 {
			err := tx.Model(&order).Update("Status", SalesOrderStatusReserved).Error
			return SalesOrderStatusReserved, err
		}
	}
	return order.Status, nil
}

func GetSalesOrder(ctx context.Context, id int) (*SalesOrder, error) {
	return utils.FetchModel[SalesOrder](ctx, id, "Lines", "Lines.Product", "Client", "PreferredWarehouse")
}

func GetSalesOrders(ctx context.Context, clientId *int, status *SalesOrderStatus) ([]*SalesOrder, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines").Preload("Client")

	if clientId != nil && *clientId > 0 {
		dbCtx = dbCtx.Where("client_id = ?", *clientId)
	}
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var results []*SalesOrder
	err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
