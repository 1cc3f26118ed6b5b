package model

import (
	"time"
)

// Order is an order mirrored from the ledger. Money columns are cents.
type Order struct {
	ID            uint   `gorm:"primaryKey"`
	OrderRef      string `gorm:"column:order_ref;uniqueIndex"`
	CustomerPhone string `gorm:"column:customer_phone;index"`
	OrderType     string `gorm:"column:order_type"`
	Details       string `gorm:"type:text"`
	GoodsValue    int64  `gorm:"column:goods_value"`
	ServiceFee    int64  `gorm:"column:service_fee"`
	DeliveryFee   int64  `gorm:"column:delivery_fee"`
	Subtotal      int64  `gorm:"column:subtotal"`
	DeliveryTown  string `gorm:"column:delivery_town"`
	Status        Status `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (Order) TableName() string {
	return "orders"
}
