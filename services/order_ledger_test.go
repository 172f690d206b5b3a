package services

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/homebites/database/dbtest"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

type recordedEvent struct {
	name    string
	orderID uint
	status  models.OrderStatus
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(event string, order models.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{name: event, orderID: order.ID, status: order.OrderStatus})
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.name)
	}
	return out
}

type ledgerFixture struct {
	db     *gorm.DB
	ledger *OrderLedger
	events *eventRecorder
	alice  *models.User
	bob    *models.User
	admin  *models.User
	now    time.Time
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	db := dbtest.Open(t)
	events := &eventRecorder{}
	f := &ledgerFixture{
		db:     db,
		events: events,
		alice:  dbtest.CreateUser(t, db, "alice", "9000000001", models.RoleUser),
		bob:    dbtest.CreateUser(t, db, "bob", "9000000002", models.RoleUser),
		admin:  dbtest.CreateUser(t, db, "admin", "9000000099", models.RoleAdmin),
		now:    time.Date(2025, 3, 10, 18, 30, 0, 0, time.UTC),
	}
	f.ledger = NewOrderLedger(db, events, time.UTC)
	f.ledger.Now = func() time.Time { return f.now }
	return f
}

func cashFields() OrderFields {
	return OrderFields{
		PaymentStatus: models.PaymentPending,
		PaymentMode:   models.PaymentCash,
		Address:       "12 Market Road",
		City:          "Pune",
	}
}

func assertKind(t *testing.T, err error, kind utils.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, utils.KindOf(err), err.Error())
}

func TestCreateCompleteComputesAmount(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)
	lassi := dbtest.CreateItem(t, f.db, "Lassi", 50)

	res, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), []LineItem{
		{ItemID: thali.ID, Quantity: 2},
		{ItemID: lassi.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.Amount)
	assert.Equal(t, 2, res.ItemsCount)

	var details []models.OrderDetail
	require.NoError(t, f.db.Where("order_id = ?", res.OrderID).Order("order_detail_id").Find(&details).Error)
	require.Len(t, details, 2)
	assert.Equal(t, int64(100), details[0].Price)
	assert.Equal(t, 2, details[0].Quantity)
	assert.Equal(t, int64(50), details[1].Price)

	var order models.Order
	require.NoError(t, f.db.First(&order, res.OrderID).Error)
	assert.Equal(t, int64(250), order.Amount)
	assert.Equal(t, models.OrderPending, order.OrderStatus)
	assert.Equal(t, "2025-03-10", order.OrderDate)
	assert.Equal(t, []string{EventOrderCreated}, f.events.names())
}

func TestCreateCompleteSnapshotsPrice(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)

	res, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), []LineItem{{ItemID: thali.ID, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, f.db.Model(thali).Update("price", 180).Error)

	lines, err := f.ledger.FetchWithLines(ctx, f.alice, res.OrderID)
	require.NoError(t, err)
	require.Len(t, lines.Items, 1)
	assert.Equal(t, int64(100), lines.Items[0].Price)
	assert.Equal(t, int64(100), lines.Order.Amount)
}

func TestCreateCompleteRollsBackOnMissingItem(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)

	_, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), []LineItem{
		{ItemID: thali.ID, Quantity: 1},
		{ItemID: 9999, Quantity: 1},
	})
	assertKind(t, err, utils.KindReferential)
	assert.Contains(t, err.Error(), "9999")

	assert.Zero(t, dbtest.Count(t, f.db, &models.Order{}))
	assert.Zero(t, dbtest.Count(t, f.db, &models.OrderDetail{}))
	assert.Empty(t, f.events.names())
}

func TestCreateCompleteValidation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)

	_, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), nil)
	assertKind(t, err, utils.KindValidation)

	_, err = f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), []LineItem{{ItemID: thali.ID, Quantity: 0}})
	assertKind(t, err, utils.KindValidation)

	bad := cashFields()
	bad.PaymentMode = "cheque"
	_, err = f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, bad, []LineItem{{ItemID: thali.ID, Quantity: 1}})
	assertKind(t, err, utils.KindValidation)

	badDate := cashFields()
	badDate.OrderDate = "10/03/2025"
	_, err = f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, badDate, []LineItem{{ItemID: thali.ID, Quantity: 1}})
	assertKind(t, err, utils.KindValidation)

	assert.Zero(t, dbtest.Count(t, f.db, &models.Order{}))
}

func TestCreateCompleteRejectsOverflowingTotal(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)
	lassi := dbtest.CreateItem(t, f.db, "Lassi", 50)

	for name, lines := range map[string][]LineItem{
		"wraps":     {{ItemID: thali.ID, Quantity: math.MaxInt64/50 + 10}},
		"just over": {{ItemID: thali.ID, Quantity: math.MaxInt64/100 + 1}},
		"sum":       {{ItemID: thali.ID, Quantity: math.MaxInt64 / 100}, {ItemID: lassi.ID, Quantity: 1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), lines)
			assertKind(t, err, utils.KindValidation)
		})
	}

	assert.Zero(t, dbtest.Count(t, f.db, &models.Order{}))
	assert.Zero(t, dbtest.Count(t, f.db, &models.OrderDetail{}))
	assert.Empty(t, f.events.names())
}

func TestAddLineTotal(t *testing.T) {
	total, ok := addLineTotal(150, 100, 3)
	assert.True(t, ok)
	assert.Equal(t, int64(450), total)

	total, ok = addLineTotal(0, 0, math.MaxInt32)
	assert.True(t, ok)
	assert.Zero(t, total)

	total, ok = addLineTotal(1, 1, math.MaxInt64-1)
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), total)

	_, ok = addLineTotal(2, 1, math.MaxInt64-1)
	assert.False(t, ok)
}

func TestCreateCompleteAccess(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)
	lines := []LineItem{{ItemID: thali.ID, Quantity: 1}}

	_, err := f.ledger.CreateComplete(ctx, f.bob, f.alice.ID, cashFields(), lines)
	assertKind(t, err, utils.KindForbidden)

	_, err = f.ledger.CreateComplete(ctx, f.admin, f.alice.ID, cashFields(), lines)
	assert.NoError(t, err)

	_, err = f.ledger.CreateComplete(ctx, f.admin, 4242, cashFields(), lines)
	assertKind(t, err, utils.KindReferential)
}

func TestCreateSimple(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	order, err := f.ledger.CreateSimple(ctx, f.alice, NewOrder{
		UserID:        f.alice.ID,
		Amount:        420,
		PaymentStatus: models.PaymentPaid,
		PaymentMode:   models.PaymentUPI,
		OrderDate:     "2025-03-09",
		Address:       "12 Market Road",
		City:          "Pune",
	})
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, int64(420), order.Amount)
	assert.Equal(t, models.OrderPending, order.OrderStatus)
	assert.Equal(t, models.PaymentPaid, order.PaymentStatus)

	_, err = f.ledger.CreateSimple(ctx, f.admin, NewOrder{
		UserID:        31337,
		PaymentStatus: models.PaymentPending,
		PaymentMode:   models.PaymentCash,
		Address:       "x",
		City:          "y",
	})
	assertKind(t, err, utils.KindReferential)

	_, err = f.ledger.CreateSimple(ctx, f.bob, NewOrder{UserID: f.alice.ID})
	assertKind(t, err, utils.KindForbidden)

	_, err = f.ledger.CreateSimple(ctx, f.alice, NewOrder{
		UserID:        f.alice.ID,
		Amount:        -1,
		PaymentStatus: models.PaymentPending,
		PaymentMode:   models.PaymentCash,
		Address:       "x",
		City:          "y",
	})
	assertKind(t, err, utils.KindValidation)
}

func TestCancelSucceedsWithinWindow(t *testing.T) {
	cases := map[string]string{
		"same day":       "2025-03-10",
		"day after":      "2025-03-09",
		"timestamp form": "2025-03-09T23:59:00Z",
	}
	for name, orderDate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newLedgerFixture(t)
			order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderConfirmed, orderDate)

			cancelled, err := f.ledger.Cancel(context.Background(), f.alice, order.ID)
			require.NoError(t, err)
			assert.Equal(t, models.OrderCancelled, cancelled.OrderStatus)

			var stored models.Order
			require.NoError(t, f.db.First(&stored, order.ID).Error)
			assert.Equal(t, models.OrderCancelled, stored.OrderStatus)
			assert.Equal(t, []string{EventOrderCancelled}, f.events.names())
		})
	}
}

func TestCancelWindowBoundary(t *testing.T) {
	f := newLedgerFixture(t)
	order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-09")

	f.now = time.Date(2025, 3, 10, 23, 59, 59, 0, time.UTC)
	_, err := f.ledger.Cancel(context.Background(), f.alice, order.ID)
	require.NoError(t, err)

	late := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-09")
	f.now = time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	_, err = f.ledger.Cancel(context.Background(), f.alice, late.ID)
	assertKind(t, err, utils.KindWindowExpired)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, late.ID).Error)
	assert.Equal(t, models.OrderPending, stored.OrderStatus)
}

func TestCancelUsesConfiguredTimezone(t *testing.T) {
	f := newLedgerFixture(t)
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	f.ledger.Location = kolkata

	order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-09")

	// 20:00 UTC on the 10th is already the 11th in Kolkata.
	f.now = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	_, err = f.ledger.Cancel(context.Background(), f.alice, order.ID)
	assertKind(t, err, utils.KindWindowExpired)
}

func TestCancelTerminalStates(t *testing.T) {
	for _, status := range []models.OrderStatus{models.OrderDelivered, models.OrderCancelled} {
		t.Run(string(status), func(t *testing.T) {
			f := newLedgerFixture(t)
			order := dbtest.CreateOrder(t, f.db, f.alice.ID, status, "2025-03-10")

			_, err := f.ledger.Cancel(context.Background(), f.alice, order.ID)
			assertKind(t, err, utils.KindInvalidTransition)
			assert.Contains(t, err.Error(), string(status))

			var stored models.Order
			require.NoError(t, f.db.First(&stored, order.ID).Error)
			assert.Equal(t, status, stored.OrderStatus)
		})
	}
}

func TestCancelTwiceFailsSecondTime(t *testing.T) {
	f := newLedgerFixture(t)
	order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-10")

	_, err := f.ledger.Cancel(context.Background(), f.alice, order.ID)
	require.NoError(t, err)

	_, err = f.ledger.Cancel(context.Background(), f.alice, order.ID)
	assertKind(t, err, utils.KindInvalidTransition)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestConcurrentCancelSucceedsOnce(t *testing.T) {
	f := newLedgerFixture(t)
	order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-10")

	const attempts = 20
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = f.ledger.Cancel(context.Background(), f.alice, order.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, utils.KindInvalidTransition, utils.KindOf(err), err.Error())
	}
	assert.Equal(t, 1, successes)

	var stored models.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderCancelled, stored.OrderStatus)
	assert.Equal(t, []string{EventOrderCancelled}, f.events.names())
}

func TestCancelAccessAndState(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Cancel(ctx, f.alice, 777)
	assertKind(t, err, utils.KindNotFound)

	order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-10")
	_, err = f.ledger.Cancel(ctx, f.bob, order.ID)
	assertKind(t, err, utils.KindForbidden)

	_, err = f.ledger.Cancel(ctx, f.admin, order.ID)
	assertKind(t, err, utils.KindForbidden)

	_, err = f.ledger.Cancel(ctx, nil, order.ID)
	assertKind(t, err, utils.KindUnauthenticated)

	corrupt := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "yesterday-ish")
	_, err = f.ledger.Cancel(ctx, f.alice, corrupt.ID)
	assertKind(t, err, utils.KindInvalidState)
}

func TestUpdateFullBypassesStateMachine(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	order := dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderDelivered, "2025-03-01")
	delivery := "2025-03-02"

	update := OrderUpdate{
		UserID:        f.alice.ID,
		Amount:        900,
		OrderStatus:   models.OrderPending,
		PaymentStatus: models.PaymentPaid,
		PaymentMode:   models.PaymentCard,
		OrderDate:     "2025-03-01",
		DeliveryDate:  &delivery,
		Address:       "7 Lake View",
		City:          "Mumbai",
	}

	_, err := f.ledger.UpdateFull(ctx, f.alice, order.ID, update)
	assertKind(t, err, utils.KindForbidden)

	updated, err := f.ledger.UpdateFull(ctx, f.admin, order.ID, update)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, updated.OrderStatus)
	assert.Equal(t, int64(900), updated.Amount)
	assert.Equal(t, "Mumbai", updated.City)
	require.NotNil(t, updated.DeliveryDate)
	assert.Equal(t, "2025-03-02", *updated.DeliveryDate)

	_, err = f.ledger.UpdateFull(ctx, f.admin, 5555, update)
	assertKind(t, err, utils.KindNotFound)

	update.UserID = 5555
	_, err = f.ledger.UpdateFull(ctx, f.admin, order.ID, update)
	assertKind(t, err, utils.KindReferential)

	update.UserID = f.alice.ID
	update.OrderStatus = "shipped"
	_, err = f.ledger.UpdateFull(ctx, f.admin, order.ID, update)
	assertKind(t, err, utils.KindValidation)
}

func TestFetchWithLines(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)
	lassi := dbtest.CreateItem(t, f.db, "Lassi", 50)

	res, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), []LineItem{
		{ItemID: thali.ID, Quantity: 2},
		{ItemID: lassi.ID, Quantity: 3},
	})
	require.NoError(t, err)

	_, err = f.ledger.FetchWithLines(ctx, f.bob, res.OrderID)
	assertKind(t, err, utils.KindForbidden)

	_, err = f.ledger.FetchWithLines(ctx, f.alice, 8080)
	assertKind(t, err, utils.KindNotFound)

	out, err := f.ledger.FetchWithLines(ctx, f.admin, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, res.OrderID, out.Order.ID)
	assert.Equal(t, "Thali", out.Items[0].ItemName)
	assert.Equal(t, "250g", out.Items[0].Weight)
	assert.Equal(t, "Thali made fresh", out.Items[0].Description)
	assert.Equal(t, int64(150), out.Items[1].Subtotal())

	own, err := f.ledger.FetchWithLines(ctx, f.alice, res.OrderID)
	require.NoError(t, err)
	assert.Equal(t, 2, own.Count)
}

func TestListings(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderPending, "2025-03-10")
	dbtest.CreateOrder(t, f.db, f.alice.ID, models.OrderDelivered, "2025-03-01")
	dbtest.CreateOrder(t, f.db, f.bob.ID, models.OrderPending, "2025-03-10")

	all, err := f.ledger.ListAll(ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[2].ID)

	_, err = f.ledger.ListAll(ctx, f.alice)
	assertKind(t, err, utils.KindForbidden)

	pending, err := f.ledger.ListByStatus(ctx, f.admin, models.OrderPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.ledger.ListByStatus(ctx, f.admin, "lost")
	assertKind(t, err, utils.KindValidation)

	mine, err := f.ledger.ListByUser(ctx, f.alice, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.ledger.ListByUser(ctx, f.bob, f.alice.ID)
	assertKind(t, err, utils.KindForbidden)

	_, err = f.ledger.ListByUser(ctx, f.admin, 9876)
	assertKind(t, err, utils.KindNotFound)
}

func TestDeleteCascadesToLines(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	thali := dbtest.CreateItem(t, f.db, "Thali", 100)

	res, err := f.ledger.CreateComplete(ctx, f.alice, f.alice.ID, cashFields(), []LineItem{{ItemID: thali.ID, Quantity: 2}})
	require.NoError(t, err)

	assertKind(t, f.ledger.Delete(ctx, f.alice, res.OrderID), utils.KindForbidden)

	require.NoError(t, f.ledger.Delete(ctx, f.admin, res.OrderID))
	assert.Zero(t, dbtest.Count(t, f.db, &models.Order{}))
	assert.Zero(t, dbtest.Count(t, f.db, &models.OrderDetail{}))

	assertKind(t, f.ledger.Delete(ctx, f.admin, res.OrderID), utils.KindNotFound)
	assert.Equal(t, []string{EventOrderCreated, EventOrderDeleted}, f.events.names())
}

func TestParseOrderDate(t *testing.T) {
	for _, raw := range []string{"2025-03-09", "2025-03-09T10:00:00Z", "2025-03-09T10:00:00", "2025-03-09 10:00:00", " 2025-03-09 "} {
		day, err := parseOrderDate(raw, time.UTC)
		require.NoError(t, err, raw)
		assert.Equal(t, time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC), day, raw)
	}
	for _, raw := range []string{"", "09-03-2025", "2025-02-30", "tomorrow"} {
		_, err := parseOrderDate(raw, time.UTC)
		assert.Error(t, err, raw)
	}
}
