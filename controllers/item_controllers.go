package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/middlewares"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
)

type ItemController struct {
	Catalog *services.Catalog
}

func NewItemController(catalog *services.Catalog) *ItemController {
	return &ItemController{Catalog: catalog}
}

// Photos and videos are stored as reference strings; uploads are handled
// elsewhere.
type itemRequest struct {
	ItemName    string `json:"item_name" binding:"required,max=255"`
	Price       *int64 `json:"price" binding:"required,gte=0"`
	Weight      string `json:"weight" binding:"max=64"`
	Photos      string `json:"photos"`
	Videos      string `json:"videos"`
	Description string `json:"description"`
}

func (r itemRequest) input() services.ItemInput {
	return services.ItemInput{
		ItemName:    r.ItemName,
		Price:       *r.Price,
		Weight:      r.Weight,
		Photos:      r.Photos,
		Videos:      r.Videos,
		Description: r.Description,
	}
}

func (ic *ItemController) GetAllItems(c *gin.Context) {
	items, err := ic.Catalog.List(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of items", items)
}

func (ic *ItemController) GetItemByID(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	item, err := ic.Catalog.Get(c.Request.Context(), itemID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item", item)
}

func (ic *ItemController) CreateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}
	item, err := ic.Catalog.Create(c.Request.Context(), middlewares.CurrentUser(c), req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Item created", item)
}

func (ic *ItemController) UpdateItem(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}
	item, err := ic.Catalog.Update(c.Request.Context(), middlewares.CurrentUser(c), itemID, req.input())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item updated", item)
}

func (ic *ItemController) DeleteItem(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	if err := ic.Catalog.Delete(c.Request.Context(), middlewares.CurrentUser(c), itemID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item deleted", nil)
}
