package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/export"
	"github.com/yeremiapane/fuji-pos/middlewares"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type ReceiptController struct {
	Receipts *services.ReceiptService
}

func NewReceiptController(receipts *services.ReceiptService) *ReceiptController {
	return &ReceiptController{Receipts: receipts}
}

// GetReceipt returns an order's receipt as json, thermal text (?format=text) or pdf.
// Text and pdf downloads are logged as prints.
func (rc *ReceiptController) GetReceipt(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "text" && format != export.FormatPDF {
		utils.RespondAppError(c, apperrors.Validation("format must be json, text or pdf"))
		return
	}

	receipt, err := rc.Receipts.Get(c.Request.Context(), id)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	if format == "json" {
		utils.RespondJSON(c, http.StatusOK, "Receipt", receipt)
		return
	}

	var buf bytes.Buffer
	contentType, method := "text/plain; charset=utf-8", models.PrintMethodThermal
	if format == export.FormatPDF {
		err = export.WriteReceiptPDF(&buf, receipt)
		contentType, method = export.ContentType(export.FormatPDF), models.PrintMethodPDF
	} else {
		err = export.WriteReceiptText(&buf, receipt)
	}
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if _, err := rc.Receipts.LogPrint(c.Request.Context(), currentUser(c), id, method); err != nil {
		utils.RespondAppError(c, err)
		return
	}

	if format == export.FormatPDF {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="receipt-%d.pdf"`, id))
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

type printReceiptRequest struct {
	PrintMethod string `json:"print_method" binding:"required,print_method"`
}

// LogPrint records a print made on the client, e.g. from the browser dialog.
func (rc *ReceiptController) LogPrint(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req printReceiptRequest
	if !bindJSON(c, &req) {
		return
	}
	rec, err := rc.Receipts.LogPrint(c.Request.Context(), currentUser(c), id, req.PrintMethod)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.InfoLogger.Printf("Receipt for order %d printed via %s", id, req.PrintMethod)
	utils.RespondJSON(c, http.StatusCreated, "Receipt print logged", rec)
}

// ListReceipts pages through completed orders' receipts.
func (rc *ReceiptController) ListReceipts(c *gin.Context) {
	orderID, err := queryUint(c, "order_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	page, err := rc.Receipts.List(c.Request.Context(), services.ReceiptFilter{
		From:          c.Query("from"),
		To:            c.Query("to"),
		OrderID:       orderID,
		OrderType:     c.Query("order_type"),
		PaymentMethod: c.Query("payment_method"),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 0),
	})
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Receipts", page)
}

func currentUser(c *gin.Context) *uint {
	uid := middlewares.CurrentUserID(c)
	if uid == 0 {
		return nil
	}
	return &uid
}
