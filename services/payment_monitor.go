package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/utils"
)

// PaymentMonitor expires stale intents and reconciles pending QRIS charges with the gateway.
type PaymentMonitor struct {
	payments *PaymentService
	Interval time.Duration
	StopChan chan struct{}
	stopOnce sync.Once
}

func NewPaymentMonitor(payments *PaymentService, interval time.Duration) *PaymentMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PaymentMonitor{
		payments: payments,
		Interval: interval,
		StopChan: make(chan struct{}),
	}
}

func (pm *PaymentMonitor) Start() {
	go func() {
		ticker := time.NewTicker(pm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pm.RunOnce(context.Background())
			case <-pm.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Printf("Payment monitor started (every %s)", pm.Interval)
}

func (pm *PaymentMonitor) Stop() {
	pm.stopOnce.Do(func() { close(pm.StopChan) })
}

// RunOnce performs a single expiry and reconciliation pass.
func (pm *PaymentMonitor) RunOnce(ctx context.Context) {
	expired, err := pm.payments.ExpireStale(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Error expiring payments: %v", err)
	} else if expired > 0 {
		utils.InfoLogger.Printf("Expired %d stale payment intents", expired)
	}

	if pm.payments.gateway == nil {
		return
	}
	pending, err := pm.payments.PendingQRIS(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Error listing pending QRIS payments: %v", err)
		return
	}
	for i := range pending {
		p := &pending[i]
		status, err := pm.payments.gateway.Status(ctx, p.IntentReference)
		if err != nil {
			// retried on the next tick
			utils.ErrorLogger.Printf("Error checking payment %d: %v", p.ID, err)
			continue
		}
		switch status {
		case models.PaymentStatusCompleted:
			if _, err := pm.payments.complete(ctx, Actor{}, p, ""); err != nil {
				utils.ErrorLogger.Printf("Error completing payment %d: %v", p.ID, err)
				continue
			}
			utils.InfoLogger.Printf("Payment %d settled by gateway", p.ID)
		case models.PaymentStatusFailed:
			pm.payments.markFailed(ctx, p)
			utils.InfoLogger.Printf("Payment %d declined by gateway", p.ID)
		}
	}
}
