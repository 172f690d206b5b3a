package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/homebites/metrics"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

// Events published after a ledger mutation commits.
const (
	EventOrderCreated   = "order_created"
	EventOrderUpdated   = "order_updated"
	EventOrderCancelled = "order_cancelled"
	EventOrderDeleted   = "order_deleted"
)

// OrderEvents receives committed order changes.
type OrderEvents interface {
	Publish(event string, order models.Order)
}

// NewOrder is the input of CreateSimple.
type NewOrder struct {
	UserID        uint
	Amount        int64
	PaymentStatus models.PaymentStatus
	PaymentMode   models.PaymentMode
	OrderDate     string
	DeliveryDate  *string
	Address       string
	City          string
}

// OrderFields are the caller-chosen fields of a composite order.
type OrderFields struct {
	PaymentStatus models.PaymentStatus
	PaymentMode   models.PaymentMode
	OrderDate     string
	DeliveryDate  *string
	Address       string
	City          string
}

type LineItem struct {
	ItemID   uint
	Quantity int
}

type CompleteOrderResult struct {
	OrderID    uint  `json:"order_id"`
	Amount     int64 `json:"amount"`
	ItemsCount int   `json:"items_count"`
}

// OrderUpdate replaces every mutable field of an order.
type OrderUpdate struct {
	UserID        uint
	Amount        int64
	OrderStatus   models.OrderStatus
	PaymentStatus models.PaymentStatus
	PaymentMode   models.PaymentMode
	OrderDate     string
	DeliveryDate  *string
	Address       string
	City          string
}

type OrderWithLines struct {
	Order models.Order       `json:"order"`
	Items []models.OrderLine `json:"items"`
	Count int                `json:"count"`
}

// OrderLedger owns orders and their lines. Every operation takes the
// resolved caller explicitly.
type OrderLedger struct {
	DB       *gorm.DB
	Events   OrderEvents
	Now      func() time.Time
	Location *time.Location
}

func NewOrderLedger(db *gorm.DB, events OrderEvents, loc *time.Location) *OrderLedger {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderLedger{DB: db, Events: events, Now: time.Now, Location: loc}
}

// CreateSimple inserts a single order with a caller-supplied amount.
func (l *OrderLedger) CreateSimple(ctx context.Context, caller *models.User, in NewOrder) (*models.Order, error) {
	if err := RequireSelfOrAdmin(caller, in.UserID); err != nil {
		return nil, err
	}
	if in.Amount < 0 {
		return nil, utils.NewError(utils.KindValidation, "amount must not be negative")
	}
	fields := OrderFields{
		PaymentStatus: in.PaymentStatus,
		PaymentMode:   in.PaymentMode,
		OrderDate:     in.OrderDate,
		DeliveryDate:  in.DeliveryDate,
		Address:       in.Address,
		City:          in.City,
	}
	order, err := l.newOrder(in.UserID, fields)
	if err != nil {
		return nil, err
	}
	order.Amount = in.Amount

	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, in.UserID); err != nil {
			return err
		}
		return dbError(tx.Create(order).Error)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues("simple").Inc()
	logOrderCreated(order)
	l.publish(EventOrderCreated, *order)
	return order, nil
}

// CreateComplete inserts an order and one detail row per line item in a
// single transaction. Prices are snapshotted from the catalog and the order
// amount is their sum. Nothing persists if any line fails.
func (l *OrderLedger) CreateComplete(ctx context.Context, caller *models.User, userID uint, fields OrderFields, lines []LineItem) (*CompleteOrderResult, error) {
	if err := RequireSelfOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, utils.NewError(utils.KindValidation, "an order needs at least one item")
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, utils.NewError(utils.KindValidation, "items[%d]: quantity must be greater than zero", i)
		}
	}
	order, err := l.newOrder(userID, fields)
	if err != nil {
		return nil, err
	}

	err = l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}

		ids := make([]uint, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ItemID)
		}
		var items []models.Item
		if err := tx.Where("item_id IN ?", ids).Find(&items).Error; err != nil {
			return dbError(err)
		}
		prices := make(map[uint]int64, len(items))
		for _, item := range items {
			prices[item.ID] = item.Price
		}

		details := make([]models.OrderDetail, 0, len(lines))
		for _, line := range lines {
			price, ok := prices[line.ItemID]
			if !ok {
				return utils.NewError(utils.KindReferential, "item %d does not exist", line.ItemID)
			}
			total, ok := addLineTotal(order.Amount, price, line.Quantity)
			if !ok {
				return utils.NewError(utils.KindValidation, "item %d: order total is too large", line.ItemID)
			}
			order.Amount = total
			details = append(details, models.OrderDetail{
				ItemID:   line.ItemID,
				Quantity: line.Quantity,
				Price:    price,
			})
		}

		if err := tx.Create(order).Error; err != nil {
			return dbError(err)
		}
		for i := range details {
			details[i].OrderID = order.ID
		}
		return dbError(tx.Create(&details).Error)
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues("complete").Inc()
	logOrderCreated(order)
	l.publish(EventOrderCreated, *order)
	return &CompleteOrderResult{OrderID: order.ID, Amount: order.Amount, ItemsCount: len(lines)}, nil
}

// Cancel moves an owner's order to cancelled. It is allowed while the order
// is not delivered or cancelled and today is no later than the day after
// order_date.
func (l *OrderLedger) Cancel(ctx context.Context, caller *models.User, orderID uint) (*models.Order, error) {
	order, err := l.cancel(ctx, caller, orderID)
	if err != nil {
		metrics.CancelRejected.WithLabelValues(string(utils.KindOf(err))).Inc()
		return nil, err
	}
	metrics.OrdersCancelled.Inc()
	l.publish(EventOrderCancelled, *order)
	return order, nil
}

func (l *OrderLedger) cancel(ctx context.Context, caller *models.User, orderID uint) (*models.Order, error) {
	if caller == nil {
		return nil, utils.NewError(utils.KindUnauthenticated, credentialsMessage)
	}

	var order models.Order
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOrder(tx, orderID, &order); err != nil {
			return err
		}
		if order.UserID != caller.ID {
			return utils.NewError(utils.KindForbidden, "only the owner can cancel this order")
		}
		if order.OrderStatus.Terminal() {
			return utils.NewError(utils.KindInvalidTransition, "order is already %s", order.OrderStatus)
		}

		orderDay, err := parseOrderDate(order.OrderDate, l.Location)
		if err != nil {
			return &utils.AppError{Kind: utils.KindInvalidState, Message: "order data is corrupt", Err: err}
		}
		today := dateOf(l.Now().In(l.Location), l.Location)
		if today.After(orderDay.AddDate(0, 0, 1)) {
			return utils.NewError(utils.KindWindowExpired, "orders can only be cancelled until the day after they were placed")
		}

		// Conditional on the status we just read, so a concurrent transition
		// makes this a no-op instead of a lost update.
		res := tx.Model(&models.Order{}).
			Where("order_id = ? AND order_status = ?", order.ID, order.OrderStatus).
			Update("order_status", models.OrderCancelled)
		if res.Error != nil {
			return dbError(res.Error)
		}
		if res.RowsAffected == 0 {
			if err := findOrder(tx, orderID, &order); err != nil {
				return err
			}
			return utils.NewError(utils.KindInvalidTransition, "order is already %s", order.OrderStatus)
		}
		return findOrder(tx, orderID, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateFull replaces every mutable field, status included, without any
// transition check. Admin only.
func (l *OrderLedger) UpdateFull(ctx context.Context, caller *models.User, orderID uint, in OrderUpdate) (*models.Order, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !in.OrderStatus.Valid() {
		return nil, utils.NewError(utils.KindValidation, "unknown order status %q", in.OrderStatus)
	}
	if in.Amount < 0 {
		return nil, utils.NewError(utils.KindValidation, "amount must not be negative")
	}
	if err := validatePayment(in.PaymentStatus, in.PaymentMode); err != nil {
		return nil, err
	}
	if _, err := parseOrderDate(in.OrderDate, l.Location); err != nil {
		return nil, utils.NewError(utils.KindValidation, "order_date must be a date (YYYY-MM-DD)")
	}
	if err := validateDeliveryDate(in.DeliveryDate, l.Location); err != nil {
		return nil, err
	}

	var order models.Order
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOrder(tx, orderID, &order); err != nil {
			return err
		}
		if err := requireUser(tx, in.UserID); err != nil {
			return err
		}
		order.UserID = in.UserID
		order.Amount = in.Amount
		order.OrderStatus = in.OrderStatus
		order.PaymentStatus = in.PaymentStatus
		order.PaymentMode = in.PaymentMode
		order.OrderDate = strings.TrimSpace(in.OrderDate)
		order.DeliveryDate = in.DeliveryDate
		order.Address = in.Address
		order.City = in.City
		return dbError(tx.Save(&order).Error)
	})
	if err != nil {
		return nil, err
	}

	l.publish(EventOrderUpdated, order)
	return &order, nil
}

// Delete removes an order together with its lines. Admin only.
func (l *OrderLedger) Delete(ctx context.Context, caller *models.User, orderID uint) error {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return err
	}

	var order models.Order
	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findOrder(tx, orderID, &order); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderDetail{}).Error; err != nil {
			return dbError(err)
		}
		return dbError(tx.Delete(&models.Order{}, orderID).Error)
	})
	if err != nil {
		return err
	}

	l.publish(EventOrderDeleted, order)
	return nil
}

// Get returns one order to its owner or an admin.
func (l *OrderLedger) Get(ctx context.Context, caller *models.User, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := findOrder(l.DB.WithContext(ctx), orderID, &order); err != nil {
		return nil, err
	}
	if err := RequireSelfOrAdmin(caller, order.UserID); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchWithLines returns an order with its lines joined to the catalog.
func (l *OrderLedger) FetchWithLines(ctx context.Context, caller *models.User, orderID uint) (*OrderWithLines, error) {
	db := l.DB.WithContext(ctx)

	var order models.Order
	if err := findOrder(db, orderID, &order); err != nil {
		return nil, err
	}
	if err := RequireSelfOrAdmin(caller, order.UserID); err != nil {
		return nil, err
	}

	lines := []models.OrderLine{}
	err := db.Table("order_details AS od").
		Select("od.order_detail_id, od.order_id, od.item_id, od.quantity, od.price, i.item_name, i.description, i.weight").
		Joins("JOIN items AS i ON i.item_id = od.item_id").
		Where("od.order_id = ?", orderID).
		Order("od.order_detail_id").
		Scan(&lines).Error
	if err != nil {
		return nil, dbError(err)
	}

	return &OrderWithLines{Order: order, Items: lines, Count: len(lines)}, nil
}

// ListAll returns every order, newest first. Admin only.
func (l *OrderLedger) ListAll(ctx context.Context, caller *models.User) ([]models.Order, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	orders := []models.Order{}
	if err := l.DB.WithContext(ctx).Order("order_id DESC").Find(&orders).Error; err != nil {
		return nil, dbError(err)
	}
	return orders, nil
}

// ListByStatus returns orders in one status. Admin only.
func (l *OrderLedger) ListByStatus(ctx context.Context, caller *models.User, status models.OrderStatus) ([]models.Order, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, utils.NewError(utils.KindValidation, "unknown order status %q", status)
	}
	orders := []models.Order{}
	err := l.DB.WithContext(ctx).
		Where("order_status = ?", status).
		Order("order_id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, dbError(err)
	}
	return orders, nil
}

// ListByUser returns a user's orders to that user or an admin.
func (l *OrderLedger) ListByUser(ctx context.Context, caller *models.User, userID uint) ([]models.Order, error) {
	if err := RequireSelfOrAdmin(caller, userID); err != nil {
		return nil, err
	}
	db := l.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, dbError(err)
	}
	if count == 0 {
		return nil, utils.NewError(utils.KindNotFound, "user %d not found", userID)
	}

	orders := []models.Order{}
	if err := db.Where("user_id = ?", userID).Order("order_id DESC").Find(&orders).Error; err != nil {
		return nil, dbError(err)
	}
	return orders, nil
}

func (l *OrderLedger) newOrder(userID uint, f OrderFields) (*models.Order, error) {
	if err := validatePayment(f.PaymentStatus, f.PaymentMode); err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.Address) == "" || strings.TrimSpace(f.City) == "" {
		return nil, utils.NewError(utils.KindValidation, "address and city are required")
	}

	orderDate := strings.TrimSpace(f.OrderDate)
	if orderDate == "" {
		orderDate = l.Now().In(l.Location).Format(models.OrderDateLayout)
	} else if _, err := parseOrderDate(orderDate, l.Location); err != nil {
		return nil, utils.NewError(utils.KindValidation, "order_date must be a date (YYYY-MM-DD)")
	}
	if err := validateDeliveryDate(f.DeliveryDate, l.Location); err != nil {
		return nil, err
	}

	return &models.Order{
		UserID:        userID,
		OrderStatus:   models.OrderPending,
		PaymentStatus: f.PaymentStatus,
		PaymentMode:   f.PaymentMode,
		OrderDate:     orderDate,
		DeliveryDate:  f.DeliveryDate,
		Address:       f.Address,
		City:          f.City,
	}, nil
}

func (l *OrderLedger) publish(event string, order models.Order) {
	if l.Events != nil {
		l.Events.Publish(event, order)
	}
}

// addLineTotal returns amount + price*quantity, or false when it would
// overflow int64.
func addLineTotal(amount, price int64, quantity int) (int64, bool) {
	q := int64(quantity)
	if price != 0 && q > (math.MaxInt64-amount)/price {
		return 0, false
	}
	return amount + price*q, true
}

func logOrderCreated(order *models.Order) {
	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
	}).Infof("order created (%s)", utils.FormatCurrencyINR(order.Amount))
}

func findOrder(db *gorm.DB, orderID uint, out *models.Order) error {
	if err := db.First(out, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewError(utils.KindNotFound, "order %d not found", orderID)
		}
		return dbError(err)
	}
	return nil
}

func requireUser(db *gorm.DB, userID uint) error {
	var count int64
	if err := db.Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return dbError(err)
	}
	if count == 0 {
		return utils.NewError(utils.KindReferential, "user %d does not exist", userID)
	}
	return nil
}

func validatePayment(status models.PaymentStatus, mode models.PaymentMode) error {
	switch status {
	case models.PaymentPending, models.PaymentPaid, models.PaymentFailed:
	default:
		return utils.NewError(utils.KindValidation, "unknown payment status %q", status)
	}
	switch mode {
	case models.PaymentCash, models.PaymentUPI, models.PaymentCard:
	default:
		return utils.NewError(utils.KindValidation, "unknown payment mode %q", mode)
	}
	return nil
}

func validateDeliveryDate(raw *string, loc *time.Location) error {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	if _, err := parseOrderDate(*raw, loc); err != nil {
		return utils.NewError(utils.KindValidation, "delivery_date must be a date (YYYY-MM-DD)")
	}
	return nil
}

var orderDateLayouts = []string{
	models.OrderDateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseOrderDate returns midnight of the calendar date written in raw.
func parseOrderDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var err error
	for _, layout := range orderDateLayouts {
		var t time.Time
		if t, err = time.ParseInLocation(layout, raw, loc); err == nil {
			return dateOf(t, loc), nil
		}
	}
	return time.Time{}, err
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
