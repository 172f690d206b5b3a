package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/homebites/middlewares"
	"github.com/yeremiapane/homebites/models"
	"github.com/yeremiapane/homebites/services"
	"github.com/yeremiapane/homebites/utils"
)

type OrderController struct {
	Ledger *services.OrderLedger
}

func NewOrderController(ledger *services.OrderLedger) *OrderController {
	return &OrderController{Ledger: ledger}
}

type orderFieldsRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required,oneof=pending paid failed"`
	PaymentMode   models.PaymentMode   `json:"payment_mode" binding:"required,oneof=cash upi card"`
	OrderDate     string               `json:"order_date"`
	DeliveryDate  *string              `json:"delivery_date"`
	Address       string               `json:"address" binding:"required"`
	City          string               `json:"city" binding:"required,max=128"`
}

func (r orderFieldsRequest) fields() services.OrderFields {
	return services.OrderFields{
		PaymentStatus: r.PaymentStatus,
		PaymentMode:   r.PaymentMode,
		OrderDate:     r.OrderDate,
		DeliveryDate:  r.DeliveryDate,
		Address:       r.Address,
		City:          r.City,
	}
}

// ownerOrCaller defaults an omitted user_id to the caller.
func ownerOrCaller(c *gin.Context, userID uint) uint {
	if userID == 0 {
		if user := middlewares.CurrentUser(c); user != nil {
			return user.ID
		}
	}
	return userID
}

// CreateOrder inserts an order without lines; the amount is taken as given.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req struct {
		orderFieldsRequest
		UserID uint  `json:"user_id"`
		Amount int64 `json:"amount" binding:"gte=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	f := req.fields()
	order, err := oc.Ledger.CreateSimple(c.Request.Context(), middlewares.CurrentUser(c), services.NewOrder{
		UserID:        ownerOrCaller(c, req.UserID),
		Amount:        req.Amount,
		PaymentStatus: f.PaymentStatus,
		PaymentMode:   f.PaymentMode,
		OrderDate:     f.OrderDate,
		DeliveryDate:  f.DeliveryDate,
		Address:       f.Address,
		City:          f.City,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// CreateCompleteOrder inserts an order and its lines atomically.
func (oc *OrderController) CreateCompleteOrder(c *gin.Context) {
	var req struct {
		orderFieldsRequest
		UserID uint `json:"user_id"`
		Items  []struct {
			ItemID   uint `json:"item_id" binding:"required"`
			Quantity int  `json:"quantity" binding:"required,gt=0"`
		} `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	lines := make([]services.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, services.LineItem{ItemID: it.ItemID, Quantity: it.Quantity})
	}

	res, err := oc.Ledger.CreateComplete(c.Request.Context(), middlewares.CurrentUser(c), ownerOrCaller(c, req.UserID), req.fields(), lines)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", res)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Ledger.Get(c.Request.Context(), middlewares.CurrentUser(c), orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order", order)
}

// GetCompleteOrder returns an order with its lines.
func (oc *OrderController) GetCompleteOrder(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	out, err := oc.Ledger.FetchWithLines(c.Request.Context(), middlewares.CurrentUser(c), orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order with items", out)
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Ledger.Cancel(c.Request.Context(), middlewares.CurrentUser(c), orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.InfoLogger.WithField("order_id", order.ID).Info("order cancelled")
	utils.RespondJSON(c, http.StatusOK, "Order cancelled", order)
}

// UpdateOrder replaces every field of an order, status included.
func (oc *OrderController) UpdateOrder(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		orderFieldsRequest
		UserID      uint               `json:"user_id" binding:"required"`
		Amount      *int64             `json:"amount" binding:"required,gte=0"`
		OrderStatus models.OrderStatus `json:"order_status" binding:"required,oneof=pending confirmed delivered cancelled"`
		OrderDate   string             `json:"order_date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondValidation(c, err)
		return
	}

	order, err := oc.Ledger.UpdateFull(c.Request.Context(), middlewares.CurrentUser(c), orderID, services.OrderUpdate{
		UserID:        req.UserID,
		Amount:        *req.Amount,
		OrderStatus:   req.OrderStatus,
		PaymentStatus: req.PaymentStatus,
		PaymentMode:   req.PaymentMode,
		OrderDate:     req.OrderDate,
		DeliveryDate:  req.DeliveryDate,
		Address:       req.Address,
		City:          req.City,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	if err := oc.Ledger.Delete(c.Request.Context(), middlewares.CurrentUser(c), orderID); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order deleted", nil)
}

// GetAllOrders lists every order, or those in ?status= when given.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	var (
		orders []models.Order
		err    error
	)
	if status := c.Query("status"); status != "" {
		orders, err = oc.Ledger.ListByStatus(c.Request.Context(), middlewares.CurrentUser(c), models.OrderStatus(status))
	} else {
		orders, err = oc.Ledger.ListAll(c.Request.Context(), middlewares.CurrentUser(c))
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetOrdersByStatus(c *gin.Context) {
	status := models.OrderStatus(c.Param("status"))
	orders, err := oc.Ledger.ListByStatus(c.Request.Context(), middlewares.CurrentUser(c), status)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) GetUserOrders(c *gin.Context) {
	userID, ok := paramID(c, "user_id")
	if !ok {
		return
	}
	orders, err := oc.Ledger.ListByUser(c.Request.Context(), middlewares.CurrentUser(c), userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}
