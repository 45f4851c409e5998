package models

import (
	"context"
	"time"

	"github.com/distfocus/logistics_backend/config"
	"github.com/distfocus/logistics_backend/utils"
)

// Client is the ordering customer (retail chain, reseller, branch shop).
type Client struct {
	ID              int       `gorm:"primary_key" json:"id"`
	Name            string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email           string    `gorm:"size:255" json:"email"`
	Phone           string    `gorm:"size:50" json:"phone"`
	ShippingAddress string    `gorm:"type:text" json:"shipping_address"`
	IsActive        *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone"`
	ShippingAddress string `json:"shipping_address"`
}

func CreateClient(ctx context.Context, input *NewClient) (*Client, error) {

	client := Client{
		Name:            input.Name,
		Email:           input.Email,
		Phone:           input.Phone,
		ShippingAddress: input.ShippingAddress,
		IsActive:        utils.NewTrue(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&client).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func UpdateClient(ctx context.Context, id int, input *NewClient) (*Client, error) {

	client, err := utils.FetchModel[Client](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(client).Updates(map[string]interface{}{
		"Name":            input.Name,
		"Email":           input.Email,
		"Phone":           input.Phone,
		"ShippingAddress": input.ShippingAddress,
	}).Error
	if err != nil {
		return nil, err
	}
	return client, nil
}

func ToggleActiveClient(ctx context.Context, id int, isActive bool) (*Client, error) {
	client, err := utils.FetchModel[Client](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(client).Update("IsActive", isActive).Error
	if err != nil {
		return nil, err
	}
	return client, nil
}

func GetClient(ctx context.Context, id int) (*Client, error) {
	return utils.FetchModel[Client](ctx, id)
}

func GetClients(ctx context.Context) ([]*Client, error) {
	db := config.GetDB()
	var results []*Client
	err := db.WithContext(ctx).Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
