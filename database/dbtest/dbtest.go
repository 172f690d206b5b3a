// Package dbtest opens isolated in-memory databases for tests.
package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/homebites/config"
	"github.com/yeremiapane/homebites/database"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open returns a migrated SQLite memory database private to t. The shared
// cache keeps every pooled connection on the same database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	utils.SilenceLoggers()

	dsn := config.SQLiteDSN("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Hasher is a fast bcrypt hasher for tests.
func Hasher() *utils.PasswordHasher {
	return utils.NewPasswordHasher(bcrypt.MinCost)
}

// CreateUser inserts a user whose password is "password".
func CreateUser(t testing.TB, db *gorm.DB, name, phone, role string) *models.User {
	t.Helper()
	hashed, err := Hasher().Hash("password")
	require.NoError(t, err)

	user := &models.User{
		Name:        name,
		PhoneNumber: phone,
		Email:       name + "@example.com",
		Password:    hashed,
		Role:        role,
		Address:     "12 Market Road",
		City:        "Pune",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateItem(t testing.TB, db *gorm.DB, name string, price int64) *models.Item {
	t.Helper()
	item := &models.Item{
		ItemName:    name,
		Price:       price,
		Weight:      "250g",
		Description: name + " made fresh",
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

// CreateOrder inserts an order row directly, bypassing the ledger.
func CreateOrder(t testing.TB, db *gorm.DB, userID uint, status models.OrderStatus, orderDate string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        userID,
		Amount:        100,
		OrderStatus:   status,
		PaymentStatus: models.PaymentPending,
		PaymentMode:   models.PaymentCash,
		OrderDate:     orderDate,
		Address:       "12 Market Road",
		City:          "Pune",
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

// Count returns the number of rows of model.
func Count(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
