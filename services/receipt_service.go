package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
)

const (
	receiptFooter          = "Thank you for dining with us!"
	defaultReceiptPageSize = 20
	maxReceiptPageSize     = 100
)

type ReceiptLine struct {
	Name         string   `json:"name"`
	Quantity     int      `json:"quantity"`
	UnitPrice    float64  `json:"unit_price"`
	Total        float64  `json:"total"`
	Modifiers    []string `json:"modifiers,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

type ReceiptPayment struct {
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	Amount        float64    `json:"amount"`
	Tip           float64    `json:"tip"`
	CashReceived  float64    `json:"cash_received,omitempty"`
	Change        float64    `json:"change,omitempty"`
	TransactionID string     `json:"transaction_id,omitempty"`
	CardLastFour  string     `json:"card_last_four,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at"`
}

// Receipt is the printable view of a settled or open order.
type Receipt struct {
	Number         string           `json:"receipt_number"`
	Restaurant     string           `json:"restaurant"`
	OrderID        uint             `json:"order_id"`
	OrderType      string           `json:"order_type"`
	Status         string           `json:"status"`
	TableNumber    *int             `json:"table_number"`
	CustomerName   string           `json:"customer_name,omitempty"`
	ServerName     string           `json:"server_name,omitempty"`
	IssuedAt       time.Time        `json:"issued_at"`
	Lines          []ReceiptLine    `json:"lines"`
	Subtotal       float64          `json:"subtotal"`
	Discount       float64          `json:"discount"`
	DiscountReason string           `json:"discount_reason,omitempty"`
	Tax            float64          `json:"tax"`
	Gratuity       float64          `json:"gratuity"`
	ServiceCharge  float64          `json:"service_charge"`
	Total          float64          `json:"total"`
	AmountPaid     float64          `json:"amount_paid"`
	Change         float64          `json:"change"`
	Payments       []ReceiptPayment `json:"payments"`
	Footer         string           `json:"footer"`
}

// ReceiptFilter narrows the receipt history. Dates are YYYY-MM-DD, both inclusive.
type ReceiptFilter struct {
	From          string
	To            string
	OrderID       uint
	OrderType     string
	PaymentMethod string
	Page          int
	PageSize      int
}

type ReceiptPage struct {
	Receipts   []Receipt `json:"receipts"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

type ReceiptService struct {
	DB         *gorm.DB
	Settings   config.Settings
	Restaurant string
	Now        func() time.Time
}

func NewReceiptService(db *gorm.DB, settings config.Settings, restaurant string) *ReceiptService {
	if restaurant == "" {
		restaurant = "Fuji"
	}
	return &ReceiptService{DB: db, Settings: settings, Restaurant: restaurant}
}

func (s *ReceiptService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Get builds the receipt for one order. Cancelled orders have none.
func (s *ReceiptService) Get(ctx context.Context, orderID uint) (*Receipt, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Preload("OrderItems", orderItemsByID).
		Preload("Table").
		Preload("Server").
		First(&order, orderID).Error
	if err != nil {
		return nil, lookupErr(err, "order", orderID)
	}
	if order.Status == orderflow.StatusCancelled {
		return nil, apperrors.Conflict("order %d was cancelled and has no receipt", orderID)
	}

	payments, err := s.settledPayments(ctx, []uint{order.ID})
	if err != nil {
		return nil, err
	}
	receipt := s.build(order, payments[order.ID])
	return &receipt, nil
}

// List pages through receipts of completed orders, newest first.
func (s *ReceiptService) List(ctx context.Context, f ReceiptFilter) (*ReceiptPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultReceiptPageSize
	}
	if f.PageSize > maxReceiptPageSize {
		f.PageSize = maxReceiptPageSize
	}

	q := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("orders.status = ? AND orders.is_void = ?", orderflow.StatusCompleted, false)
	if f.From != "" || f.To != "" {
		r, err := ParseDateRange(f.From, f.To, s.Settings.Location(), s.now())
		if err != nil {
			return nil, err
		}
		q = q.Where("orders.created_at >= ? AND orders.created_at < ?", dbTime(r.From), dbTime(r.To))
	}
	if f.OrderID != 0 {
		q = q.Where("orders.id = ?", f.OrderID)
	}
	switch f.OrderType {
	case "", "all":
	case models.OrderTypeDineIn, models.OrderTypeTakeOut:
		q = q.Where("orders.order_type = ?", f.OrderType)
	default:
		return nil, apperrors.Validation("order_type must be dine_in, take_out or all")
	}
	if f.PaymentMethod != "" {
		if !validPaymentMethod(f.PaymentMethod) {
			return nil, apperrors.Validation("unknown payment method %q", f.PaymentMethod)
		}
		q = q.Where(`EXISTS (SELECT 1 FROM payments WHERE payments.order_id = orders.id
			AND payments.status = ? AND payments.payment_method = ?)`, models.PaymentStatusCompleted, f.PaymentMethod)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count receipts: %w", err)
	}

	var orders []models.Order
	err := q.Preload("OrderItems", orderItemsByID).
		Preload("Table").
		Preload("Server").
		Order("orders.created_at DESC, orders.id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load receipts: %w", err)
	}

	ids := make([]uint, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	payments, err := s.settledPayments(ctx, ids)
	if err != nil {
		return nil, err
	}

	page := &ReceiptPage{
		Receipts:   make([]Receipt, 0, len(orders)),
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(f.PageSize))),
	}
	for _, o := range orders {
		page.Receipts = append(page.Receipts, s.build(o, payments[o.ID]))
	}
	return page, nil
}

// LogPrint records that a receipt left the building, on paper or as a file.
func (s *ReceiptService) LogPrint(ctx context.Context, actor *uint, orderID uint, method string) (*models.ReceiptPrint, error) {
	switch method {
	case models.PrintMethodBrowser, models.PrintMethodThermal, models.PrintMethodPDF:
	default:
		return nil, apperrors.Validation("print_method must be browser, thermal or pdf")
	}
	var order models.Order
	if err := s.DB.WithContext(ctx).Select("id", "status").First(&order, orderID).Error; err != nil {
		return nil, lookupErr(err, "order", orderID)
	}
	if order.Status == orderflow.StatusCancelled {
		return nil, apperrors.Conflict("order %d was cancelled and has no receipt", orderID)
	}

	rec := &models.ReceiptPrint{OrderID: orderID, UserID: actor, PrintMethod: method}
	if err := s.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("failed to log receipt print: %w", err)
	}
	return rec, nil
}

func (s *ReceiptService) settledPayments(ctx context.Context, orderIDs []uint) (map[uint][]models.Payment, error) {
	out := make(map[uint][]models.Payment, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var payments []models.Payment
	err := s.DB.WithContext(ctx).
		Where("order_id IN ? AND status IN ?", orderIDs, []string{models.PaymentStatusCompleted, models.PaymentStatusRefunded}).
		Order("id ASC").
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load receipt payments: %w", err)
	}
	for _, p := range payments {
		out[p.OrderID] = append(out[p.OrderID], p)
	}
	return out, nil
}

func (s *ReceiptService) build(o models.Order, payments []models.Payment) Receipt {
	issued := o.CreatedAt
	if o.CompletedAt != nil {
		issued = *o.CompletedAt
	}
	issued = issued.In(s.Settings.Location())

	r := Receipt{
		Number:        fmt.Sprintf("RCP/%s/%06d", issued.Format("20060102"), o.ID),
		Restaurant:    s.Restaurant,
		OrderID:       o.ID,
		OrderType:     o.OrderType,
		Status:        string(o.Status),
		IssuedAt:      issued,
		Lines:         make([]ReceiptLine, 0, len(o.OrderItems)),
		Subtotal:      o.Subtotal,
		Discount:      o.DiscountAmount,
		Tax:           o.TaxAmount,
		Gratuity:      o.GratuityAmount,
		ServiceCharge: o.ServiceCharge,
		Total:         o.TotalAmount,
		AmountPaid:    o.AmountPaid,
		Change:        o.ChangeAmount,
		Payments:      make([]ReceiptPayment, 0, len(payments)),
		Footer:        receiptFooter,
	}
	if o.Table != nil {
		n := o.Table.TableNumber
		r.TableNumber = &n
	}
	if o.CustomerName != nil {
		r.CustomerName = *o.CustomerName
	}
	if o.Server != nil {
		r.ServerName = o.Server.Name
	}
	if o.DiscountReason != nil {
		r.DiscountReason = *o.DiscountReason
	}

	for _, it := range o.OrderItems {
		if it.Status == orderflow.ItemCancelled {
			continue
		}
		line := ReceiptLine{
			Name:      it.ItemName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Total:     it.TotalPrice,
		}
		for _, m := range it.Modifiers {
			line.Modifiers = append(line.Modifiers, m.Name)
		}
		if it.SpecialInstructions != nil {
			line.Instructions = *it.SpecialInstructions
		}
		r.Lines = append(r.Lines, line)
	}

	for _, p := range payments {
		rp := ReceiptPayment{
			Method:       p.PaymentMethod,
			Status:       p.Status,
			Amount:       p.Amount,
			Tip:          p.TipAmount,
			CashReceived: p.CashReceived,
			Change:       p.ChangeGiven,
			ProcessedAt:  p.ProcessedAt,
		}
		if p.TransactionID != nil {
			rp.TransactionID = *p.TransactionID
		}
		if p.CardLastFour != nil {
			rp.CardLastFour = *p.CardLastFour
		}
		r.Payments = append(r.Payments, rp)
	}
	return r
}

func validPaymentMethod(m string) bool {
	switch m {
	case models.PaymentMethodCash, models.PaymentMethodCredit, models.PaymentMethodDebit,
		models.PaymentMethodGiftCard, models.PaymentMethodQRIS:
		return true
	}
	return false
}
