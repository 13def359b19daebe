package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/yeremiapane/fuji-pos/services"
	"github.com/yeremiapane/fuji-pos/utils"
)

// receiptWidth is the column count of an 80mm thermal roll.
const receiptWidth = 32

// WriteReceiptText renders a receipt for a thermal printer.
func WriteReceiptText(w io.Writer, r *services.Receipt) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("-", receiptWidth)

	center(bw, r.Restaurant)
	center(bw, r.Number)
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "Order #%d  %s\n", r.OrderID, strings.ReplaceAll(r.OrderType, "_", "-"))
	if r.TableNumber != nil {
		fmt.Fprintf(bw, "Table %d\n", *r.TableNumber)
	}
	if r.ServerName != "" {
		fmt.Fprintf(bw, "Server: %s\n", r.ServerName)
	}
	if r.CustomerName != "" {
		fmt.Fprintf(bw, "Guest: %s\n", r.CustomerName)
	}
	fmt.Fprintln(bw, r.IssuedAt.Format("2006-01-02 15:04"))
	fmt.Fprintln(bw, rule)

	for _, l := range r.Lines {
		pair(bw, fmt.Sprintf("%dx %s", l.Quantity, l.Name), money(l.Total))
		for _, m := range l.Modifiers {
			fmt.Fprintf(bw, "   + %s\n", clip(m, receiptWidth-5))
		}
		if l.Instructions != "" {
			fmt.Fprintf(bw, "   * %s\n", clip(l.Instructions, receiptWidth-5))
		}
	}
	fmt.Fprintln(bw, rule)

	for _, t := range receiptTotals(r) {
		pair(bw, t[0], t[1])
	}
	fmt.Fprintln(bw, rule)
	pair(bw, "TOTAL", money(r.Total))
	for _, p := range r.Payments {
		label := strings.ToUpper(p.Method)
		if p.CardLastFour != "" {
			label += " ****" + p.CardLastFour
		}
		if p.Status != "completed" {
			label += " (" + p.Status + ")"
		}
		pair(bw, label, money(p.Amount))
		if p.Tip > 0 {
			pair(bw, "  Tip", money(p.Tip))
		}
	}
	if r.Change > 0 {
		pair(bw, "Change", money(r.Change))
	}
	fmt.Fprintln(bw, rule)
	center(bw, r.Footer)
	return bw.Flush()
}

// WriteReceiptPDF renders a receipt on an 80mm wide page.
func WriteReceiptPDF(w io.Writer, r *services.Receipt) error {
	height := 110 + 6*float64(len(r.Lines)+len(r.Payments))
	for _, l := range r.Lines {
		height += 5 * float64(len(l.Modifiers))
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: height},
	})
	pdf.SetMargins(5, 5, 5)
	pdf.SetAutoPageBreak(false, 5)
	pdf.SetTitle("Receipt "+r.Number, false)
	pdf.AddPage()

	widths := []float64{50, 20}
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 7, r.Restaurant, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, r.Number, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, r.IssuedAt.Format("2006-01-02 15:04"), "", 1, "C", false, 0, "")
	info := fmt.Sprintf("Order #%d", r.OrderID)
	if r.TableNumber != nil {
		info += fmt.Sprintf(" - Table %d", *r.TableNumber)
	}
	pdf.CellFormat(0, 5, info, "B", 1, "C", false, 0, "")
	pdf.Ln(2)

	for _, l := range r.Lines {
		row(pdf, []string{fmt.Sprintf("%dx %s", l.Quantity, l.Name), utils.FormatCurrency(l.Total)}, widths)
		for _, m := range l.Modifiers {
			pdf.CellFormat(0, 5, "   + "+m, "", 1, "L", false, 0, "")
		}
	}
	pdf.CellFormat(0, 2, "", "B", 1, "L", false, 0, "")
	pdf.Ln(1)

	for _, t := range receiptTotals(r) {
		row(pdf, []string{t[0], "$" + t[1]}, widths)
	}
	pdf.SetFont("Helvetica", "B", 11)
	row(pdf, []string{"Total", utils.FormatCurrency(r.Total)}, widths)
	pdf.SetFont("Helvetica", "", 9)
	for _, p := range r.Payments {
		row(pdf, []string{strings.ToUpper(p.Method), utils.FormatCurrency(p.Amount)}, widths)
	}
	if r.Change > 0 {
		row(pdf, []string{"Change", utils.FormatCurrency(r.Change)}, widths)
	}
	pdf.Ln(3)
	pdf.CellFormat(0, 5, r.Footer, "", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render receipt pdf: %w", err)
	}
	return pdf.Output(w)
}

// receiptTotals lists the non-zero adjustments between subtotal and total.
func receiptTotals(r *services.Receipt) [][2]string {
	out := [][2]string{{"Subtotal", money(r.Subtotal)}}
	if r.Discount > 0 {
		label := "Discount"
		if r.DiscountReason != "" {
			label += " (" + r.DiscountReason + ")"
		}
		out = append(out, [2]string{label, "-" + money(r.Discount)})
	}
	out = append(out, [2]string{"Tax", money(r.Tax)})
	if r.ServiceCharge > 0 {
		out = append(out, [2]string{"Service charge", money(r.ServiceCharge)})
	}
	if r.Gratuity > 0 {
		out = append(out, [2]string{"Gratuity", money(r.Gratuity)})
	}
	return out
}

func pair(w io.Writer, left, right string) {
	left = clip(left, receiptWidth-len(right)-1)
	pad := receiptWidth - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	fmt.Fprintf(w, "%s%s%s\n", left, strings.Repeat(" ", pad), right)
}

func center(w io.Writer, s string) {
	s = clip(s, receiptWidth)
	fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", (receiptWidth-len(s))/2), s)
}

func clip(s string, n int) string {
	if n < 1 {
		return ""
	}
	if len(s) > n {
		return s[:n]
	}
	return s
}
