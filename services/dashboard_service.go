package services

import (
	"context"

	"github.com/yeremiapane/homebites/models"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalItems    int64                        `json:"total_items"`
	TotalUsers    int64                        `json:"total_users"`
	TotalOrders   int64                        `json:"total_orders"`
	OrdersByState map[models.OrderStatus]int64 `json:"orders_by_status"`
	PaidRevenue   int64                        `json:"paid_revenue"`
}

// Dashboard computes the admin overview counters.
type Dashboard struct {
	DB *gorm.DB
}

func NewDashboard(db *gorm.DB) *Dashboard {
	return &Dashboard{DB: db}
}

// Stats counts rows per table and sums the amount of paid orders that were
// not cancelled. Admin only.
func (d *Dashboard) Stats(ctx context.Context, caller *models.User) (*DashboardStats, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	db := d.DB.WithContext(ctx)

	stats := &DashboardStats{
		OrdersByState: map[models.OrderStatus]int64{
			models.OrderPending:   0,
			models.OrderConfirmed: 0,
			models.OrderDelivered: 0,
			models.OrderCancelled: 0,
		},
	}
	if err := db.Model(&models.Item{}).Count(&stats.TotalItems).Error; err != nil {
		return nil, dbError(err)
	}
	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, dbError(err)
	}
	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, dbError(err)
	}

	var rows []struct {
		OrderStatus models.OrderStatus
		Total       int64
	}
	err := db.Model(&models.Order{}).
		Select("order_status, COUNT(*) AS total").
		Group("order_status").
		Scan(&rows).Error
	if err != nil {
		return nil, dbError(err)
	}
	for _, r := range rows {
		stats.OrdersByState[r.OrderStatus] = r.Total
	}

	err = db.Model(&models.Order{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_status = ? AND order_status <> ?", models.PaymentPaid, models.OrderCancelled).
		Scan(&stats.PaidRevenue).Error
	if err != nil {
		return nil, dbError(err)
	}
	return stats, nil
}
