package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

// Terminal reports whether no further status change is allowed through the
// customer-facing lifecycle.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMode string

const (
	PaymentCash PaymentMode = "cash"
	PaymentUPI  PaymentMode = "upi"
	PaymentCard PaymentMode = "card"
)

// OrderDateLayout is the canonical storage format of order_date and
// delivery_date.
const OrderDateLayout = "2006-01-02"

type Order struct {
	ID            uint          `gorm:"column:order_id;primaryKey" json:"order_id"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	User          *User         `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Amount        int64         `gorm:"not null;check:chk_orders_amount,amount >= 0" json:"amount"`
	OrderStatus   OrderStatus   `gorm:"type:varchar(16);not null;default:'pending';index;check:chk_orders_status,order_status IN ('pending','confirmed','delivered','cancelled')" json:"order_status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(16);not null;check:chk_orders_payment_status,payment_status IN ('pending','paid','failed')" json:"payment_status"`
	PaymentMode   PaymentMode   `gorm:"type:varchar(16);not null;check:chk_orders_payment_mode,payment_mode IN ('cash','upi','card')" json:"payment_mode"`
	OrderDate     string        `gorm:"type:varchar(32);not null" json:"order_date"`
	DeliveryDate  *string       `gorm:"type:varchar(32)" json:"delivery_date"`
	Address       string        `gorm:"type:text;not null" json:"address"`
	City          string        `gorm:"type:varchar(128);not null" json:"city"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
