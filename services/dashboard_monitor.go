package services

import (
	"context"
	"sync"
	"time"

	"github.com/yeremiapane/fuji-pos/kds"
	"github.com/yeremiapane/fuji-pos/utils"
)

// DashboardMonitor pushes a fresh dashboard snapshot to connected displays
// every Interval. A newer snapshot always replaces the previous one.
type DashboardMonitor struct {
	analytics *AnalyticsService
	Interval  time.Duration
	StopChan  chan struct{}
	stopOnce  sync.Once
}

func NewDashboardMonitor(analytics *AnalyticsService, interval time.Duration) *DashboardMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &DashboardMonitor{
		analytics: analytics,
		Interval:  interval,
		StopChan:  make(chan struct{}),
	}
}

func (dm *DashboardMonitor) Start() {
	go func() {
		ticker := time.NewTicker(dm.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				dm.push()
			case <-dm.StopChan:
				return
			}
		}
	}()
	utils.InfoLogger.Printf("Dashboard monitor started (every %s)", dm.Interval)
}

func (dm *DashboardMonitor) Stop() {
	dm.stopOnce.Do(func() { close(dm.StopChan) })
}

func (dm *DashboardMonitor) push() {
	if kds.ClientCount() == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dm.Interval)
	defer cancel()
	if _, err := dm.RunOnce(ctx); err != nil {
		utils.ErrorLogger.Printf("Error refreshing dashboard: %v", err)
	}
}

// RunOnce rebuilds the snapshot and broadcasts it.
func (dm *DashboardMonitor) RunOnce(ctx context.Context) (*DashboardSnapshot, error) {
	snap, err := dm.analytics.RefreshDashboard(ctx)
	if err != nil {
		return nil, err
	}
	kds.BroadcastDashboardUpdate(snap)
	return snap, nil
}
