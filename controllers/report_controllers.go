package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/export"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

type ReportController struct {
	Analytics  *services.AnalyticsService
	Restaurant string
}

func NewReportController(analytics *services.AnalyticsService, restaurant string) *ReportController {
	if restaurant == "" {
		restaurant = "Fuji"
	}
	return &ReportController{Analytics: analytics, Restaurant: restaurant}
}

// EndOfDay reports ?date (YYYY-MM-DD), today by default.
func (rc *ReportController) EndOfDay(c *gin.Context) {
	day, ok := rc.day(c)
	if !ok {
		return
	}
	report, err := rc.Analytics.EndOfDay(c.Request.Context(), day)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "End of day report", report)
}

// Export downloads completed orders as csv or json, or the end-of-day report as pdf.
func (rc *ReportController) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	loc := rc.Analytics.Settings.Location()

	var buf bytes.Buffer
	var name string
	switch format {
	case export.FormatPDF:
		day, ok := rc.day(c)
		if !ok {
			return
		}
		report, err := rc.Analytics.EndOfDay(c.Request.Context(), day)
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		if err := export.WriteEndOfDayPDF(&buf, report, rc.Restaurant); err != nil {
			utils.RespondAppError(c, err)
			return
		}
		name = fmt.Sprintf("end-of-day-%s.pdf", report.Date)
	default:
		r, err := services.ParseDateRange(c.Query("from"), c.Query("to"), loc, rc.now())
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		orders, err := rc.Analytics.CompletedOrders(c.Request.Context(), r)
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		if format == export.FormatCSV {
			err = export.WriteOrdersCSV(&buf, orders, loc)
		} else {
			err = export.WriteOrdersJSON(&buf, orders)
		}
		if err != nil {
			utils.RespondAppError(c, err)
			return
		}
		name = fmt.Sprintf("orders-%s-%s.%s", r.From.Format("20060102"), r.To.AddDate(0, 0, -1).Format("20060102"), format)
	}

	utils.InfoLogger.Printf("Report exported: %s (%d bytes)", name, buf.Len())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, export.ContentType(format), buf.Bytes())
}

func (rc *ReportController) day(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return rc.now(), true
	}
	day, err := time.ParseInLocation("2006-01-02", raw, rc.Analytics.Settings.Location())
	if err != nil {
		utils.RespondAppError(c, apperrors.Validation("invalid date %q, expected YYYY-MM-DD", raw))
		return time.Time{}, false
	}
	return day, true
}

func (rc *ReportController) now() time.Time {
	if rc.Analytics.Now != nil {
		return rc.Analytics.Now()
	}
	return time.Now()
}
