package models

import (
	"context"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
)

type Shipment struct {
	ID              int            `gorm:"primary_key" json:"id"`
	ShipmentNumber  string         `gorm:"size:100;uniqueIndex;not null" json:"shipment_number"`
	SequenceNo      int64          `gorm:"not null" json:"sequence_no"`
	SalesOrderId    int            `gorm:"index;not null" json:"sales_order_id"`
	SalesOrder      SalesOrder     `json:"sales_order"`
	Status          ShipmentStatus `gorm:"size:30;not null" json:"status"`
	Carrier         string         `gorm:"size:100" json:"carrier"`
	TrackingNumber  string         `gorm:"size:100" json:"tracking_number"`
	PlannedShipDate time.Time      `gorm:"not null" json:"planned_ship_date"`
	ShippedAt       *time.Time     `json:"shipped_at"`
	DeliveredAt     *time.Time     `json:"delivered_at"`
	Notes           string         `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	Lines           []ShipmentLine `gorm:"foreignKey:ShipmentId" json:"lines"`
}

type ShipmentLine struct {
	ID              int     `gorm:"primary_key" json:"id"`
	ShipmentId      int     `gorm:"index;not null" json:"shipment_id"`
	SoLineId        int     `gorm:"not null" json:"so_line_id"`
	ProductId       int     `gorm:"not null" json:"product_id"`
	Product         Product `json:"product"`
	Quantity        int     `gorm:"not null" json:"quantity"`
	ShippedQuantity int     `gorm:"not null;default:0" json:"shipped_quantity"`
}

func GetShipment(ctx context.Context, id int) (*Shipment, error) {
	return utils.FetchModel[Shipment](ctx, id, "Lines", "Lines.Product", "SalesOrder")
}

func GetShipmentsForSalesOrder(ctx context.Context, salesOrderId int) ([]*Shipment, error) {
	db := config.GetDB()
	var results []*Shipment
	err := db.WithContext(ctx).
		Preload("Lines").
		Where("sales_order_id = ?", salesOrderId).
		Order("created_at ASC, id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetShipments(ctx context.Context, status *ShipmentStatus) ([]*Shipment, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Lines")

	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}

	var results []*Shipment
	err := dbCtx.Order("created_at DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
