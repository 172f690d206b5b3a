package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/utils"
	"gorm.io/gorm"
)

// Catalog manages the item catalog. Reads are public, writes are admin only.
type Catalog struct {
	DB *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{DB: db}
}

type ItemInput struct {
	ItemName    string
	Price       int64
	Weight      string
	Photos      string
	Videos      string
	Description string
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.ItemName) == "" {
		return utils.NewError(utils.KindValidation, "item_name is required")
	}
	if in.Price < 0 {
		return utils.NewError(utils.KindValidation, "price must not be negative")
	}
	return nil
}

func (s *Catalog) List(ctx context.Context) ([]models.Item, error) {
	items := []models.Item{}
	if err := s.DB.WithContext(ctx).Order("item_id").Find(&items).Error; err != nil {
		return nil, dbError(err)
	}
	return items, nil
}

func (s *Catalog) Get(ctx context.Context, itemID uint) (*models.Item, error) {
	var item models.Item
	if err := findItem(s.DB.WithContext(ctx), itemID, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Catalog) Create(ctx context.Context, caller *models.User, in ItemInput) (*models.Item, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	item := models.Item{
		ItemName:    strings.TrimSpace(in.ItemName),
		Price:       in.Price,
		Weight:      in.Weight,
		Photos:      in.Photos,
		Videos:      in.Videos,
		Description: in.Description,
	}
	if err := s.DB.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, dbError(err)
	}
	return &item, nil
}

// Update replaces the item's fields. Prices already snapshotted on order
// lines are not affected.
func (s *Catalog) Update(ctx context.Context, caller *models.User, itemID uint, in ItemInput) (*models.Item, error) {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var item models.Item
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := findItem(tx, itemID, &item); err != nil {
			return err
		}
		item.ItemName = strings.TrimSpace(in.ItemName)
		item.Price = in.Price
		item.Weight = in.Weight
		item.Photos = in.Photos
		item.Videos = in.Videos
		item.Description = in.Description
		return dbError(tx.Save(&item).Error)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes an item no order line references.
func (s *Catalog) Delete(ctx context.Context, caller *models.User, itemID uint) error {
	if err := RequireRole(caller, models.RoleAdmin); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := findItem(tx, itemID, &item); err != nil {
			return err
		}
		var lines int64
		if err := tx.Model(&models.OrderDetail{}).Where("item_id = ?", itemID).Count(&lines).Error; err != nil {
			return dbError(err)
		}
		if lines > 0 {
			return utils.NewError(utils.KindConflict, "item %d is referenced by %d order lines", itemID, lines)
		}
		return dbError(tx.Delete(&models.Item{}, itemID).Error)
	})
}

func findItem(db *gorm.DB, itemID uint, out *models.Item) error {
	if err := db.First(out, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewError(utils.KindNotFound, "item %d not found", itemID)
		}
		return dbError(err)
	}
	return nil
}
