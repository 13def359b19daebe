package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
}

func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{Payments: payments}
}

// ProcessCash settles an order in cash and returns the change due.
func (pc *PaymentController) ProcessCash(c *gin.Context) {
	var req services.CashPaymentInput
	if !bindJSON(c, &req) {
		return
	}
	payment, err := pc.Payments.ProcessCash(c.Request.Context(), actor(c), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment completed", gin.H{
		"payment":      payment,
		"change_given": payment.ChangeGiven,
	})
}

// CreateIntent opens a pending payment; QRIS intents carry the charge's QR payload.
func (pc *PaymentController) CreateIntent(c *gin.Context) {
	var req services.PaymentIntentInput
	if !bindJSON(c, &req) {
		return
	}
	payment, err := pc.Payments.CreateIntent(c.Request.Context(), req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Payment intent created", payment)
}

func (pc *PaymentController) Confirm(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ConfirmPaymentInput
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	payment, err := pc.Payments.Confirm(c.Request.Context(), actor(c), id, req)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", payment)
}

func (pc *PaymentController) Refund(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	payment, err := pc.Payments.Refund(c.Request.Context(), actor(c), id, req.Reason)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Payment refunded", payment)
}

func (pc *PaymentController) GetOrderPayments(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	payments, err := pc.Payments.ListForOrder(c.Request.Context(), orderID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order payments", payments)
}

// HandleNotification receives the gateway's signed status callback. It is not behind auth.
func (pc *PaymentController) HandleNotification(c *gin.Context) {
	var req services.PaymentNotification
	if !bindJSON(c, &req) {
		return
	}
	payment, err := pc.Payments.HandleNotification(c.Request.Context(), req)
	if err != nil {
		utils.ErrorLogger.Printf("Payment notification %s rejected: %v", req.OrderID, err)
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Payment notification %s processed: status=%s", req.OrderID, payment.Status)
	utils.RespondJSON(c, http.StatusOK, "Notification processed", gin.H{"payment_id": payment.ID, "status": payment.Status})
}
