package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/config"
	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/metrics"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/orderflow"
	"github.com/yeremiapane/fuji-pos/pricing"
	"github.com/yeremiapane/fuji-pos/utils"
)

type CashPaymentInput struct {
	OrderID      uint    `json:"order_id" binding:"required"`
	CashReceived float64 `json:"cash_received" binding:"required,gt=0"`
	TipAmount    float64 `json:"tip_amount" binding:"min=0"`
}

type PaymentIntentInput struct {
	OrderID      uint    `json:"order_id" binding:"required"`
	Method       string  `json:"payment_method" binding:"required,payment_method"`
	TipAmount    float64 `json:"tip_amount" binding:"min=0"`
	CardLastFour string  `json:"card_last_four" binding:"omitempty,len=4,numeric"`
}

type ConfirmPaymentInput struct {
	TransactionID string `json:"transaction_id"`
}

// PaymentNotification is the gateway's asynchronous status callback.
type PaymentNotification struct {
	OrderID           string `json:"order_id" binding:"required"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key" binding:"required"`
	TransactionStatus string `json:"transaction_status"`
	TransactionID     string `json:"transaction_id"`
}

// PaymentService settles orders. Cash completes immediately; other methods go through a pending intent.
type PaymentService struct {
	db       *gorm.DB
	orders   *OrderService
	gateway  PaymentGateway
	settings config.Settings
	now      func() time.Time
}

// NewPaymentService wires the service. gateway may be nil when QRIS is not configured.
func NewPaymentService(db *gorm.DB, orders *OrderService, gateway PaymentGateway, settings config.Settings) *PaymentService {
	return &PaymentService{
		db:       db,
		orders:   orders,
		gateway:  gateway,
		settings: settings,
		now:      time.Now,
	}
}

func (s *PaymentService) ProcessCash(ctx context.Context, actor Actor, in CashPaymentInput) (*models.Payment, error) {
	if in.TipAmount < 0 {
		return nil, apperrors.Validation("tip must not be negative")
	}
	var payment models.Payment
	var orderStatus orderflow.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		if err := ensurePayable(tx, order); err != nil {
			return err
		}
		due := pricing.Round2(order.TotalAmount + in.TipAmount)
		received := pricing.Round2(in.CashReceived)
		if received < due {
			return apperrors.Validation("cash received %.2f is less than the amount due %.2f", received, due)
		}

		now := s.now()
		payment = models.Payment{
			OrderID:         order.ID,
			PaymentMethod:   models.PaymentMethodCash,
			Status:          models.PaymentStatusCompleted,
			Amount:          order.TotalAmount,
			TipAmount:       pricing.Round2(in.TipAmount),
			CashReceived:    received,
			ChangeGiven:     pricing.Round2(received - due),
			IntentReference: uuid.NewString(),
			ProcessedBy:     actor.ref(),
			ProcessedAt:     &now,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		orderStatus = order.Status
		return guardedUpdate(tx, order, map[string]interface{}{
			"amount_paid":   due,
			"change_amount": payment.ChangeGiven,
		})
	})
	if err != nil {
		return nil, err
	}
	s.settle(ctx, actor, &payment, orderStatus)
	return &payment, nil
}

// CreateIntent opens a pending payment. Card methods add the card service charge to the order.
func (s *PaymentService) CreateIntent(ctx context.Context, in PaymentIntentInput) (*models.Payment, error) {
	method := strings.ToLower(strings.TrimSpace(in.Method))
	switch method {
	case models.PaymentMethodCredit, models.PaymentMethodDebit, models.PaymentMethodGiftCard:
	case models.PaymentMethodQRIS:
		if s.gateway == nil {
			return nil, apperrors.Validation("QRIS payments are not configured")
		}
	case models.PaymentMethodCash:
		return nil, apperrors.Validation("cash payments are settled directly, not through an intent")
	default:
		return nil, apperrors.Validation("unknown payment method %q", in.Method)
	}
	if in.TipAmount < 0 {
		return nil, apperrors.Validation("tip must not be negative")
	}

	var payment models.Payment
	var expired []models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, in.OrderID)
		if err != nil {
			return err
		}
		if err := ensurePayable(tx, order); err != nil {
			return err
		}

		now := s.now()
		var pending []models.Payment
		if err := tx.Where("order_id = ? AND status = ?", order.ID, models.PaymentStatusPending).Find(&pending).Error; err != nil {
			return fmt.Errorf("failed to load pending payments: %w", err)
		}
		for i := range pending {
			p := &pending[i]
			if p.ExpiresAt == nil || now.Before(*p.ExpiresAt) {
				return apperrors.Conflict("order %d already has pending payment %d", order.ID, p.ID)
			}
			if _, err := s.failIntent(tx, p); err != nil {
				return err
			}
			expired = append(expired, *p)
		}
		if len(expired) > 0 {
			// expiry may have taken back a card service charge
			if order, err = loadOrder(tx, order.ID); err != nil {
				return err
			}
		}

		var prior *float64
		isCard := method == models.PaymentMethodCredit || method == models.PaymentMethodDebit
		if isCard && !order.Status.Terminal() && order.ServiceChargeRate != s.settings.CardServiceChargeRate {
			rate := order.ServiceChargeRate
			prior = &rate
			order.ServiceChargeRate = s.settings.CardServiceChargeRate
			if err := order.Recalculate(); err != nil {
				return err
			}
			if err := saveTotals(tx, order, nil); err != nil {
				return err
			}
		}

		expires := now.Add(s.settings.PaymentIntentTTL)
		payment = models.Payment{
			OrderID:         order.ID,
			PaymentMethod:   method,
			Status:          models.PaymentStatusPending,
			Amount:          order.TotalAmount,
			TipAmount:       pricing.Round2(in.TipAmount),
			IntentReference: uuid.NewString(),
			ExpiresAt:       &expires,

			PriorServiceChargeRate: prior,
		}
		if in.CardLastFour != "" {
			last4 := in.CardLastFour
			payment.CardLastFour = &last4
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment intent: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for i := range expired {
		metrics.Payment(expired[i].PaymentMethod, models.PaymentStatusFailed)
	}

	if method == models.PaymentMethodQRIS {
		charge, err := s.gateway.ChargeQRIS(ctx, payment.IntentReference, payment.Amount+payment.TipAmount)
		if err != nil {
			s.markFailed(ctx, &payment)
			return nil, fmt.Errorf("failed to charge QRIS payment %d: %w", payment.ID, err)
		}
		payment.TransactionID = &charge.TransactionID
		payment.QRString = &charge.QRString
		err = s.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", payment.ID).
			Updates(map[string]interface{}{"transaction_id": charge.TransactionID, "qr_string": charge.QRString}).Error
		if err != nil {
			return nil, fmt.Errorf("failed to store QRIS charge: %w", err)
		}
	}

	metrics.Payment(method, models.PaymentStatusPending)
	s.broadcast(ctx, &payment)
	return &payment, nil
}

// Confirm settles a pending intent. QRIS intents are checked against the gateway first.
func (s *PaymentService) Confirm(ctx context.Context, actor Actor, paymentID uint, in ConfirmPaymentInput) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, paymentID).Error; err != nil {
		return nil, lookupErr(err, "payment", paymentID)
	}
	if payment.Status != models.PaymentStatusPending {
		return nil, apperrors.Conflict("payment %d is already %s", payment.ID, payment.Status)
	}
	if payment.ExpiresAt != nil && !s.now().Before(*payment.ExpiresAt) {
		s.markFailed(ctx, &payment)
		return nil, apperrors.Conflict("payment intent %d has expired", payment.ID)
	}

	if payment.PaymentMethod == models.PaymentMethodQRIS {
		if s.gateway == nil {
			return nil, apperrors.Validation("QRIS payments are not configured")
		}
		status, err := s.gateway.Status(ctx, payment.IntentReference)
		if err != nil {
			return nil, fmt.Errorf("failed to check payment %d: %w", payment.ID, err)
		}
		switch status {
		case models.PaymentStatusCompleted:
		case models.PaymentStatusPending:
			return nil, apperrors.Conflict("payment %d has not been settled yet", payment.ID)
		default:
			s.markFailed(ctx, &payment)
			return nil, apperrors.Conflict("payment %d was declined", payment.ID)
		}
	}
	return s.complete(ctx, actor, &payment, in.TransactionID)
}

// HandleNotification applies a signed gateway callback. Replays are harmless.
func (s *PaymentService) HandleNotification(ctx context.Context, n PaymentNotification) (*models.Payment, error) {
	if s.gateway == nil {
		return nil, apperrors.Validation("QRIS payments are not configured")
	}
	if !s.gateway.ValidateSignature(n.OrderID, n.StatusCode, n.GrossAmount, n.SignatureKey) {
		return nil, apperrors.Unauthorized("invalid notification signature")
	}
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("intent_reference = ?", n.OrderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment %s not found", n.OrderID)
		}
		return nil, fmt.Errorf("failed to load payment %s: %w", n.OrderID, err)
	}
	if payment.Status != models.PaymentStatusPending {
		return &payment, nil
	}

	switch MapMidtransStatus(n.TransactionStatus) {
	case models.PaymentStatusCompleted:
		return s.complete(ctx, Actor{}, &payment, n.TransactionID)
	case models.PaymentStatusFailed:
		s.markFailed(ctx, &payment)
	}
	return &payment, nil
}

func (s *PaymentService) Refund(ctx context.Context, actor Actor, paymentID uint, reason string) (*models.Payment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("a refund reason is required")
	}
	var payment models.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, paymentID).Error; err != nil {
			return lookupErr(err, "payment", paymentID)
		}
		if payment.Status != models.PaymentStatusCompleted {
			return apperrors.Conflict("payment %d is %s; only completed payments can be refunded", payment.ID, payment.Status)
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusCompleted).
			Updates(map[string]interface{}{"status": models.PaymentStatusRefunded, "refund_reason": reason})
		if res.Error != nil {
			return fmt.Errorf("failed to refund payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("payment %d changed concurrently", payment.ID)
		}

		order, err := loadOrder(tx, payment.OrderID)
		if err != nil {
			return err
		}
		paid := pricing.Round2(order.AmountPaid - payment.Amount - payment.TipAmount)
		if paid < 0 {
			paid = 0
		}
		return guardedUpdate(tx, order, map[string]interface{}{"amount_paid": paid})
	})
	if err != nil {
		return nil, err
	}
	payment.Status = models.PaymentStatusRefunded
	payment.RefundReason = &reason
	utils.InfoLogger.Printf("Payment %d refunded by user %d: %s", payment.ID, actor.UserID, reason)
	metrics.Payment(payment.PaymentMethod, models.PaymentStatusRefunded)
	s.broadcast(ctx, &payment)
	return &payment, nil
}

func (s *PaymentService) ListForOrder(ctx context.Context, orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC, id ASC").Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// ExpireStale fails pending intents whose deadline has passed.
func (s *PaymentService) ExpireStale(ctx context.Context) (int64, error) {
	var stale []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.PaymentStatusPending, s.now()).
		Order("id ASC").
		Find(&stale).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list expired payments: %w", err)
	}
	var expired int64
	for i := range stale {
		ok, err := s.fail(ctx, &stale[i])
		if err != nil {
			return expired, fmt.Errorf("failed to expire payment %d: %w", stale[i].ID, err)
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// PendingQRIS lists unexpired QRIS intents awaiting settlement.
func (s *PaymentService) PendingQRIS(ctx context.Context) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND payment_method = ? AND expires_at > ?", models.PaymentStatusPending, models.PaymentMethodQRIS, s.now()).
		Find(&payments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending QRIS payments: %w", err)
	}
	return payments, nil
}

func (s *PaymentService) complete(ctx context.Context, actor Actor, payment *models.Payment, transactionID string) (*models.Payment, error) {
	var orderStatus orderflow.Status
	stale := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := loadOrder(tx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := ensurePayable(tx, order); err != nil {
			return err
		}
		if pricing.Round2(order.TotalAmount) != pricing.Round2(payment.Amount) {
			stale = true
			return apperrors.Conflict("order %d total is now %.2f but payment %d was opened for %.2f; start a new payment",
				order.ID, order.TotalAmount, payment.ID, payment.Amount)
		}
		now := s.now()
		fields := map[string]interface{}{
			"status":       models.PaymentStatusCompleted,
			"processed_by": actor.ref(),
			"processed_at": now,
		}
		if transactionID != "" {
			fields["transaction_id"] = transactionID
		}
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
			Updates(fields)
		if res.Error != nil {
			return fmt.Errorf("failed to complete payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("payment %d changed concurrently", payment.ID)
		}
		orderStatus = order.Status
		return guardedUpdate(tx, order, map[string]interface{}{
			"amount_paid": pricing.Round2(payment.Amount + payment.TipAmount),
		})
	})
	if err != nil {
		if stale {
			s.markFailed(ctx, payment)
		}
		return nil, err
	}
	if err := s.db.WithContext(ctx).First(payment, payment.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload payment %d: %w", payment.ID, err)
	}
	s.settle(ctx, actor, payment, orderStatus)
	return payment, nil
}

// settle closes out a ready order once it is paid and notifies displays.
func (s *PaymentService) settle(ctx context.Context, actor Actor, payment *models.Payment, orderStatus orderflow.Status) {
	metrics.Payment(payment.PaymentMethod, models.PaymentStatusCompleted)
	if orderStatus == orderflow.StatusReady {
		if _, err := s.orders.UpdateStatus(ctx, actor, payment.OrderID, orderflow.StatusCompleted, ""); err != nil {
			utils.ErrorLogger.Printf("Payment %d settled but order %d could not be completed: %v", payment.ID, payment.OrderID, err)
		}
	}
	s.broadcast(ctx, payment)
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment) {
	if _, err := s.fail(ctx, payment); err != nil {
		utils.ErrorLogger.Printf("Failed to mark payment %d failed: %v", payment.ID, err)
	}
}

// fail closes a pending intent. It reports false if the intent had already moved on.
func (s *PaymentService) fail(ctx context.Context, payment *models.Payment) (bool, error) {
	var failed bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		failed, err = s.failIntent(tx, payment)
		return err
	})
	if err != nil || !failed {
		return false, err
	}
	metrics.Payment(payment.PaymentMethod, models.PaymentStatusFailed)
	return true, nil
}

// failIntent marks a pending intent failed and takes back the card service
// charge it put on a still unpaid order.
func (s *PaymentService) failIntent(tx *gorm.DB, payment *models.Payment) (bool, error) {
	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark payment %d failed: %w", payment.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	payment.Status = models.PaymentStatusFailed
	if payment.PriorServiceChargeRate == nil {
		return true, nil
	}

	order, err := loadOrder(tx, payment.OrderID)
	if err != nil {
		return true, err
	}
	if order.Status == orderflow.StatusCancelled || order.ServiceChargeRate != s.settings.CardServiceChargeRate {
		return true, nil
	}
	if err := ensureUnpaid(tx, order.ID); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return true, nil
		}
		return true, err
	}
	order.ServiceChargeRate = *payment.PriorServiceChargeRate
	if err := order.Recalculate(); err != nil {
		return true, err
	}
	return true, saveTotals(tx, order, nil)
}

func (s *PaymentService) broadcast(ctx context.Context, payment *models.Payment) {
	order, err := s.orders.GetOrder(ctx, payment.OrderID)
	if err != nil {
		return
	}
	kds.BroadcastPaymentUpdate(*payment, *order)
}

// ensurePayable rejects cancelled, already-paid and empty orders.
func ensurePayable(tx *gorm.DB, order *models.Order) error {
	if order.Status == orderflow.StatusCancelled {
		return apperrors.Conflict("order %d is cancelled and cannot be paid", order.ID)
	}
	if err := ensureUnpaid(tx, order.ID); err != nil {
		return err
	}
	if order.TotalAmount <= 0 {
		return apperrors.Validation("order %d has nothing to pay", order.ID)
	}
	return nil
}

// ensureUnpaid rejects changes to an order that already has a completed payment.
func ensureUnpaid(tx *gorm.DB, orderID uint) error {
	var paid int64
	err := tx.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentStatusCompleted).
		Count(&paid).Error
	if err != nil {
		return fmt.Errorf("failed to check payments: %w", err)
	}
	if paid > 0 {
		return apperrors.Conflict("order %d is already paid", orderID)
	}
	return nil
}
