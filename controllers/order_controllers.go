package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type OrderController struct {
	Orders    *services.OrderService
	Evaluator *permissions.Evaluator
}

func NewOrderController(orders *services.OrderService, ev *permissions.Evaluator) *OrderController {
	return &OrderController{Orders: orders, Evaluator: ev}
}

// GetAllOrders lists order history. Callers without orders.view_all only see their own orders.
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	filter := services.OrderFilter{
		Status:    c.Query("status"),
		OrderType: c.Query("order_type"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "page_size", 50),
	}
	var err error
	if filter.ServerID, err = queryUint(c, "server_id"); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if filter.TableID, err = queryUint(c, "table_id"); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if c.Query("from") != "" || c.Query("to") != "" {
		r, err := services.ParseDateRange(c.Query("from"), c.Query("to"), oc.Orders.Settings.Location(), time.Now())
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		filter.From, filter.To = &r.From, &r.To
	}
	if !oc.Evaluator.HasPermission(middlewares.CurrentRole(c), permissions.OrdersViewAll) {
		filter.ServerID = middlewares.CurrentUserID(c)
	}

	orders, total, err := oc.Orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", gin.H{
		"orders":    orders,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (oc *OrderController) GetActiveOrders(c *gin.Context) {
	orders, err := oc.Orders.ActiveOrders(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Active orders", orders)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) GetEstimate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	est, err := oc.Orders.Estimate(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order estimate", est)
}

func (oc *OrderController) GetKitchenQueue(c *gin.Context) {
	queue, err := oc.Orders.KitchenQueue(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen queue", queue)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	var req services.CreateOrderInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.CreateOrder(c.Request.Context(), actor(c), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Order %d created by user %d (%s)", order.ID, middlewares.CurrentUserID(c), order.OrderType)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) AddItems(c *gin.Context) {
	id, ok := oc.editableOrder(c)
	if !ok {
		return
	}
	var req struct {
		Items []services.ItemInput `json:"items" binding:"required,min=1,dive"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.AddItems(c.Request.Context(), id, req.Items)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Items added", order)
}

func (oc *OrderController) RemoveItem(c *gin.Context) {
	id, ok := oc.editableOrder(c)
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	order, err := oc.Orders.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item removed", order)
}

// UpdateStatus moves an order along its lifecycle. Cancelling needs orders.void;
// kitchen staff may only start and finish preparation.
func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
		Reason string `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	to, valid := orderflow.ParseStatus(req.Status)
	if !valid {
		utils.RespondAppError(c, apperrors.Validation("unknown order status %q", req.Status))
		return
	}

	subject := middlewares.CurrentSubject(c)
	resource := c.Request.Method + " " + c.FullPath()
	switch {
	case to == orderflow.StatusCancelled:
		if !oc.Evaluator.Check(c.Request.Context(), subject, resource, permissions.OrdersVoid) {
			utils.RespondAppError(c, apperrors.Forbidden("missing permission %s", permissions.OrdersVoid))
			return
		}
	case to == orderflow.StatusPreparing || to == orderflow.StatusReady:
		if !oc.Evaluator.Check(c.Request.Context(), subject, resource, permissions.KitchenUpdateStatus, permissions.OrdersUpdate) {
			utils.RespondAppError(c, apperrors.Forbidden("missing permission %s", permissions.KitchenUpdateStatus))
			return
		}
	default:
		if _, ok := oc.editableOrder(c); !ok {
			return
		}
	}

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), actor(c), id, to, req.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) SendToKitchen(c *gin.Context) {
	id, ok := oc.editableOrder(c)
	if !ok {
		return
	}
	order, err := oc.Orders.SendToKitchen(c.Request.Context(), actor(c), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order sent to kitchen", order)
}

func (oc *OrderController) Transfer(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		TableID uint `json:"table_id" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.Transfer(c.Request.Context(), id, req.TableID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Order %d transferred to table %d by user %d", id, req.TableID, middlewares.CurrentUserID(c))
	utils.RespondJSON(c, http.StatusOK, "Order transferred", order)
}

func (oc *OrderController) Split(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Groups []orderflow.SplitGroup `json:"groups" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	orders, err := oc.Orders.Split(c.Request.Context(), id, req.Groups)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Order %d split into %d orders by user %d", id, len(orders), middlewares.CurrentUserID(c))
	utils.RespondJSON(c, http.StatusCreated, "Order split", gin.H{
		"original_order_id": id,
		"orders":            orders,
	})
}

func (oc *OrderController) ApplyDiscount(c *gin.Context) {
	id, ok := oc.editableOrder(c)
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"amount" binding:"min=0"`
		Reason string  `json:"reason"`
	}
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.ApplyDiscount(c.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Discount applied", order)
}

func (oc *OrderController) Calculate(c *gin.Context) {
	id, ok := oc.editableOrder(c)
	if !ok {
		return
	}
	var req services.CalculateInput
	if !bindJSON(c, &req) {
		return
	}
	order, err := oc.Orders.Calculate(c.Request.Context(), id, req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Totals calculated", gin.H{
		"order_id":       order.ID,
		"subtotal":       order.Subtotal,
		"discount":       order.DiscountAmount,
		"tax":            order.TaxAmount,
		"gratuity":       order.GratuityAmount,
		"service_charge": order.ServiceCharge,
		"total":          order.TotalAmount,
		"order":          order,
	})
}

func (oc *OrderController) UpdateItemStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	to, valid := orderflow.ParseStatus(req.Status)
	if !valid {
		utils.RespondAppError(c, apperrors.Validation("unknown item status %q", req.Status))
		return
	}
	item, err := oc.Orders.UpdateItemStatus(c.Request.Context(), id, to)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Item status updated", item)
}

// editableOrder resolves :id and checks the caller may change that order.
func (oc *OrderController) editableOrder(c *gin.Context) (uint, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return 0, false
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return 0, false
	}
	if !oc.Evaluator.CanUpdateOrder(middlewares.CurrentRole(c), isOwnOrder(order, middlewares.CurrentUserID(c))) {
		utils.RespondAppError(c, apperrors.Forbidden("you cannot modify order %d", id))
		return 0, false
	}
	return id, true
}

func isOwnOrder(order *models.Order, userID uint) bool {
	return order.ServerID != nil && *order.ServerID == userID
}
