package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/fuji-pos/permissions"
)

func TestAuditRecorderPersistsDecisions(t *testing.T) {
	db := newTestDB(t)
	rec := NewAuditRecorder(db, 8)
	rec.Start()

	ctx := context.Background()
	rec.Record(ctx, permissions.Audit{
		UserID: 4, Role: permissions.RoleKitchen, Permission: permissions.PaymentsProcess,
		Resource: "POST /api/payments/cash", Granted: false, Timestamp: evening, IPAddress: "10.0.0.4",
	})
	rec.Record(ctx, permissions.Audit{
		UserID: 2, Role: permissions.RoleServer, Permission: permissions.OrdersCreate,
		Resource: "POST /api/orders", Granted: true, Timestamp: evening.Add(time.Minute),
	})
	rec.Stop()

	logs, err := RecentAudits(ctx, db, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "granted", logs[0].Action)
	assert.Equal(t, "orders.create", logs[0].Permission)
	assert.Equal(t, "denied", logs[1].Action)
	assert.Equal(t, "kitchen", logs[1].Role)
	assert.Equal(t, "10.0.0.4", logs[1].IPAddress)
}

func TestAuditRecorderDropsWhenFull(t *testing.T) {
	db := newTestDB(t)
	rec := NewAuditRecorder(db, 1)

	ctx := context.Background()
	rec.Record(ctx, permissions.Audit{UserID: 1, Permission: permissions.OrdersRead, Granted: true, Timestamp: evening})
	rec.Record(ctx, permissions.Audit{UserID: 1, Permission: permissions.OrdersRead, Granted: true, Timestamp: evening})

	rec.Start()
	rec.Stop()
	rec.Stop()

	logs, err := RecentAudits(ctx, db, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
