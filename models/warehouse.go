package models

import (
	"context"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
)

type Warehouse struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Code      string    `gorm:"size:50;uniqueIndex;not null" json:"code" binding:"required"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text" json:"address"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func CreateWarehouse(ctx context.Context, input *NewWarehouse) (*Warehouse, error) {

	if err := utils.ValidateUnique[Warehouse](ctx, "code", input.Code, 0); err != nil {
		return nil, utils.NewValidationError("%s", err.Error())
	}

	warehouse := Warehouse{
		Code:     input.Code,
		Name:     input.Name,
		Address:  input.Address,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&warehouse).Error
	if err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func UpdateWarehouse(ctx context.Context, id int, input *NewWarehouse) (*Warehouse, error) {

	if err := utils.ValidateUnique[Warehouse](ctx, "code", input.Code, id); err != nil {
		return nil, utils.NewValidationError("%s", err.Error())
	}

	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(warehouse).Updates(map[string]interface{}{
		"Code":    input.Code,
		"Name":    input.Name,
		"Address": input.Address,
	}).Error
	if err != nil {
		return nil, err
	}
	return warehouse, nil
}

func ToggleActiveWarehouse(ctx context.Context, id int, isActive bool) (*Warehouse, error) {
	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(warehouse).Update("IsActive", isActive).Error
	if err != nil {
		return nil, err
	}
	return warehouse, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	return utils.FetchModel[Warehouse](ctx, id)
}

func GetWarehouses(ctx context.Context) ([]*Warehouse, error) {
	db := config.GetDB()
	var results []*Warehouse
	err := db.WithContext(ctx).Order("code").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
