package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type AnalyticsController struct {
	Analytics *services.AnalyticsService
}

func NewAnalyticsController(analytics *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Analytics: analytics}
}

// GetDashboardStats returns today's realtime figures.
func (ac *AnalyticsController) GetDashboardStats(c *gin.Context) {
	snap, err := ac.Analytics.Dashboard(c.Request.Context())
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Dashboard", snap)
}

func (ac *AnalyticsController) GetCategories(c *gin.Context) {
	respondRange(c, ac, "Category performance", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Categories(ctx, r)
	})
}

func (ac *AnalyticsController) GetItems(c *gin.Context) {
	respondRange(c, ac, "Item performance", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Items(ctx, r)
	})
}

func (ac *AnalyticsController) GetServers(c *gin.Context) {
	respondRange(c, ac, "Server performance", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Servers(ctx, r)
	})
}

func (ac *AnalyticsController) GetHourly(c *gin.Context) {
	respondRange(c, ac, "Hourly pattern", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Hourly(ctx, r)
	})
}

func (ac *AnalyticsController) GetDaily(c *gin.Context) {
	respondRange(c, ac, "Daily sales", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Daily(ctx, r)
	})
}

func (ac *AnalyticsController) GetProfitability(c *gin.Context) {
	respondRange(c, ac, "Item profitability", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Profitability(ctx, r)
	})
}

func (ac *AnalyticsController) GetVoids(c *gin.Context) {
	respondRange(c, ac, "Void analysis", func(ctx context.Context, r services.DateRange) (interface{}, error) {
		return ac.Analytics.Voids(ctx, r)
	})
}

// dateRange reads ?from and ?to (YYYY-MM-DD, inclusive); both default to today.
func (ac *AnalyticsController) dateRange(c *gin.Context) (services.DateRange, bool) {
	now := time.Now()
	if ac.Analytics.Now != nil {
		now = ac.Analytics.Now()
	}
	r, err := services.ParseDateRange(c.Query("from"), c.Query("to"), ac.Analytics.Settings.Location(), now)
	if err != nil {
		utils.RespondAppError(c, err)
		return r, false
	}
	return r, true
}

func respondRange(c *gin.Context, ac *AnalyticsController, message string, load func(context.Context, services.DateRange) (interface{}, error)) {
	r, ok := ac.dateRange(c)
	if !ok {
		return
	}
	data, err := load(c.Request.Context(), r)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, message, gin.H{
		"from": r.From.Format("2006-01-02"),
		"to":   r.To.AddDate(0, 0, -1).Format("2006-01-02"),
		"data": data,
	})
}
