// Package export renders completed orders and end-of-day reports for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/yeremiapane/fuji-pos/apperrors"
	"github.com/yeremiapane/fuji-pos/models"
	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatPDF  = "pdf"
)

// ContentType maps a format to its MIME type.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON, FormatPDF:
		return f, nil
	default:
		return "", apperrors.Validation("unsupported export format %q", s)
	}
}

var orderColumns = []string{
	"order_id", "created_at", "order_type", "table_id", "server", "customer",
	"items", "subtotal", "discount", "tax", "gratuity", "service_charge", "total", "amount_paid",
}

// WriteOrdersCSV writes one row per order with a header line.
func WriteOrdersCSV(w io.Writer, orders []models.Order, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(orderColumns); err != nil {
		return err
	}
	for _, o := range orders {
		var items int
		for _, it := range o.OrderItems {
			items += it.Quantity
		}
		row := []string{
			strconv.FormatUint(uint64(o.ID), 10),
			o.CreatedAt.In(loc).Format(time.RFC3339),
			o.OrderType,
			optionalUint(o.TableID),
			serverName(o),
			optionalString(o.CustomerName),
			strconv.Itoa(items),
			money(o.Subtotal),
			money(o.DiscountAmount),
			money(o.TaxAmount),
			money(o.GratuityAmount),
			money(o.ServiceCharge),
			money(o.TotalAmount),
			money(o.AmountPaid),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteOrdersJSON(w io.Writer, orders []models.Order) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(orders)
}

// WriteEndOfDayPDF renders the closing report as a one-page summary.
func WriteEndOfDayPDF(w io.Writer, report *services.EndOfDayReport, restaurant string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("End of day %s", report.Date), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, restaurant+" - End of Day Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, report.Date, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	ov := report.Overview
	section(pdf, "Sales")
	pairs := [][2]string{
		{"Orders", strconv.Itoa(ov.OrderCount)},
		{"Total sales", utils.FormatCurrency(ov.TotalSales)},
		{"Average ticket", utils.FormatCurrency(ov.AverageTicket)},
		{"Tax collected", utils.FormatCurrency(ov.TotalTax)},
		{"Gratuity", utils.FormatCurrency(ov.TotalGratuity)},
		{"Discounts", utils.FormatCurrency(ov.TotalDiscount)},
		{"Dine-in", fmt.Sprintf("%d / %s", ov.DineInOrders, utils.FormatCurrency(ov.DineInSales))},
		{"Take-out", fmt.Sprintf("%d / %s", ov.TakeOutOrders, utils.FormatCurrency(ov.TakeOutSales))},
		{"Cancelled", strconv.Itoa(ov.CancelledCount)},
	}
	for _, p := range pairs {
		pdf.CellFormat(70, 6, p[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, p[1], "", 1, "R", false, 0, "")
	}

	if len(report.Payments) > 0 {
		section(pdf, "Payments")
		table(pdf, []string{"Method", "Count", "Amount", "Tips"}, []float64{70, 30, 45, 45})
		for _, p := range report.Payments {
			row(pdf, []string{p.Method, strconv.Itoa(p.Count), utils.FormatCurrency(p.Amount), utils.FormatCurrency(p.Tips)}, []float64{70, 30, 45, 45})
		}
	}

	if len(report.Categories) > 0 {
		section(pdf, "Categories")
		table(pdf, []string{"Category", "Qty", "Revenue", "%"}, []float64{70, 30, 45, 45})
		for _, s := range report.Categories {
			row(pdf, []string{s.Name, strconv.Itoa(s.Quantity), utils.FormatCurrency(s.Revenue), fmt.Sprintf("%.2f", s.Percentage)}, []float64{70, 30, 45, 45})
		}
	}

	if len(report.Servers) > 0 {
		section(pdf, "Servers")
		table(pdf, []string{"Server", "Orders", "Revenue", "Avg ticket"}, []float64{70, 30, 45, 45})
		for _, s := range report.Servers {
			name := s.Name
			if name == "" {
				name = "Unassigned"
			}
			row(pdf, []string{name, strconv.Itoa(s.OrderCount), utils.FormatCurrency(s.Revenue), utils.FormatCurrency(s.AverageTicket)}, []float64{70, 30, 45, 45})
		}
	}

	if len(report.Voids) > 0 {
		section(pdf, "Voids")
		table(pdf, []string{"Reason", "Count", "Amount"}, []float64{100, 30, 60})
		for _, v := range report.Voids {
			row(pdf, []string{v.Reason, strconv.Itoa(v.Count), utils.FormatCurrency(v.Amount)}, []float64{100, 30, 60})
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render end of day pdf: %w", err)
	}
	return pdf.Output(w)
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func table(pdf *fpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 10)
	row(pdf, headers, widths)
	pdf.SetFont("Helvetica", "", 10)
}

func row(pdf *fpdf.Fpdf, cells []string, widths []float64) {
	for i, cell := range cells {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 6, cell, "", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optionalUint(v *uint) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func serverName(o models.Order) string {
	if o.Server != nil {
		return o.Server.Name
	}
	return ""
}
