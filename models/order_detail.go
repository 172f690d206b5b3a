package models

// OrderDetail is one line of an order. Price is a snapshot of the item's
// catalog price at the time the order was placed.
type OrderDetail struct {
	ID       uint   `gorm:"column:order_detail_id;primaryKey" json:"order_detail_id"`
	OrderID  uint   `gorm:"not null;index" json:"order_id"`
	Order    *Order `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ItemID   uint   `gorm:"not null;index" json:"item_id"`
	Item     *Item  `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity int    `gorm:"not null;check:chk_order_details_quantity,quantity > 0" json:"quantity"`
	Price    int64  `gorm:"not null;check:chk_order_details_price,price >= 0" json:"price"`
}

// OrderLine is an order detail enriched with catalog fields.
type OrderLine struct {
	OrderDetailID uint   `gorm:"column:order_detail_id" json:"order_detail_id"`
	OrderID       uint   `gorm:"column:order_id" json:"order_id"`
	ItemID        uint   `gorm:"column:item_id" json:"item_id"`
	ItemName      string `gorm:"column:item_name" json:"item_name"`
	Description   string `gorm:"column:description" json:"description"`
	Weight        string `gorm:"column:weight" json:"weight"`
	Quantity      int    `gorm:"column:quantity" json:"quantity"`
	Price         int64  `gorm:"column:price" json:"price"`
}

func (l OrderLine) Subtotal() int64 {
	return l.Price * int64(l.Quantity)
}
