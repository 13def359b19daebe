package services

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/fuji-pos/metrics"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/permissions"
	"github.com/yeremiapane/fuji-pos/utils"
)

// AuditRecorder persists permission decisions off the request path.
// Decisions that arrive while the buffer is full are dropped and counted.
type AuditRecorder struct {
	db      *gorm.DB
	queue   chan permissions.Audit
	done    chan struct{}
	once    sync.Once
	started sync.Once
}

func NewAuditRecorder(db *gorm.DB, buffer int) *AuditRecorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &AuditRecorder{
		db:    db,
		queue: make(chan permissions.Audit, buffer),
		done:  make(chan struct{}),
	}
}

// Record implements permissions.AuditSink.
func (r *AuditRecorder) Record(_ context.Context, a permissions.Audit) {
	select {
	case r.queue <- a:
	default:
		metrics.AuditDropped()
		utils.ErrorLogger.WithFields(logrus.Fields{
			"user_id":    a.UserID,
			"permission": a.Permission,
			"action":     a.Action(),
		}).Error("Audit buffer full, dropping decision")
	}
}

func (r *AuditRecorder) Start() {
	r.started.Do(func() {
		go r.run()
	})
}

// Stop drains queued decisions, then returns.
func (r *AuditRecorder) Stop() {
	r.once.Do(func() {
		close(r.queue)
	})
	<-r.done
}

func (r *AuditRecorder) run() {
	defer close(r.done)
	for a := range r.queue {
		r.persist(a)
	}
}

func (r *AuditRecorder) persist(a permissions.Audit) {
	entry := models.AuditLog{
		UserID:     a.UserID,
		Role:       string(a.Role),
		Permission: string(a.Permission),
		Resource:   a.Resource,
		Action:     a.Action(),
		IPAddress:  a.IPAddress,
		UserAgent:  a.UserAgent,
		CreatedAt:  a.Timestamp,
	}
	if err := r.db.Create(&entry).Error; err != nil {
		utils.ErrorLogger.Printf("Failed to persist audit log: %v", err)
		return
	}
	if !a.Granted {
		utils.InfoLogger.WithFields(logrus.Fields{
			"user_id":    a.UserID,
			"role":       a.Role,
			"permission": a.Permission,
			"resource":   a.Resource,
		}).Warn("Permission denied")
	}
}

// RecentAudits lists the latest decisions, newest first.
func RecentAudits(ctx context.Context, db *gorm.DB, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AuditLog
	err := db.WithContext(ctx).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error
	return logs, err
}
