// Package receipt renders order receipts as PDF.
package receipt

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"

	"pureplatter/internal/models"
)

// Options tweaks what goes on the receipt.
type Options struct {
	StoreName string
	Currency  string
	// QRCode is a PNG of the outstanding delivery code, printed when set.
	QRCode []byte
}

func money(currency string, amount float64) string {
	return strings.TrimSpace(currency + " " + decimal.NewFromFloat(amount).StringFixed(2))
}

// Render builds a one-page A4 receipt for order.
func Render(order *models.Order, opts Options) ([]byte, error) {
	if order == nil {
		return nil, fmt.Errorf("receipt: nil order")
	}
	if opts.StoreName == "" {
		opts.StoreName = "Pure Platter"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Order "+order.ID.Hex(), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, opts.StoreName)
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, "Order receipt")
	pdf.Ln(10)

	details := [][2]string{
		{"Order", order.ID.Hex()},
		{"Date", order.CreatedAt.Format("02 Jan 2006 15:04")},
		{"Status", string(order.Status)},
		{"Payment", order.PaymentStatus},
		{"Customer", order.UserFullName},
		{"Email", order.UserEmail},
		{"Phone", order.UserPhone},
		{"Deliver to", strings.TrimSpace(order.DeliveryAddress + ", " + order.DeliveryCity)},
	}
	if order.TrackingNumber != "" {
		details = append(details, [2]string{"Tracking", order.TrackingNumber})
	}
	for _, row := range details {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(32, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}

	if len(opts.QRCode) > 0 {
		imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("delivery-qr", imageOpts, bytes.NewReader(opts.QRCode))
		pdf.ImageOptions("delivery-qr", 160, 28, 35, 35, false, imageOpts, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(90, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range order.Items {
		name := item.ProductName
		if item.WeightLabel != "" {
			name += " (" + item.WeightLabel + ")"
		}
		pdf.CellFormat(90, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 7, money(opts.Currency, item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, money(opts.Currency, item.TotalPrice), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(145, 8, "Order total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, money(opts.Currency, order.TotalAmount), "1", 1, "R", false, 0, "")

	if order.ConfirmedDeliveryAt != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.Cell(0, 6, "Delivered "+order.ConfirmedDeliveryAt.Format("02 Jan 2006 15:04"))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("receipt: %w", err)
	}
	return buf.Bytes(), nil
}
