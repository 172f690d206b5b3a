package database

import (
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Item{},
		&models.Order{},
		&models.OrderDetail{},
	}
}

// Migrate creates or updates the schema, including foreign keys and check
// constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}
	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
