package models

import "time"

// Item is a catalog entry. Price is in whole rupees.
type Item struct {
	ID          uint      `gorm:"column:item_id;primaryKey" json:"item_id"`
	ItemName    string    `gorm:"type:varchar(255);not null" json:"item_name"`
	Price       int64     `gorm:"not null;check:chk_items_price,price >= 0" json:"price"`
	Weight      string    `gorm:"type:varchar(64);not null" json:"weight"`
	Photos      string    `gorm:"type:text" json:"photos"`
	Videos      string    `gorm:"type:text" json:"videos"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
