package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"pureplatter/internal/models"
)

var statusMessages = map[models.OrderStatus]string{
	models.StatusConfirmed:  "Your order has been confirmed and is being prepared.",
	models.StatusProcessing: "Your order is being packed and will ship soon.",
	models.StatusShipped:    "Great news! Your order has been shipped and is on its way.",
	models.StatusDelivered:  "Your order has been delivered. We hope you enjoy your meal!",
	models.StatusCancelled:  "Unfortunately, your order has been cancelled.",
}

// StatusMessage is the customer-facing sentence for a status.
func StatusMessage(status models.OrderStatus) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return "Your order status has been updated."
}

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`
{{define "layout_start"}}<!DOCTYPE html><html><head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px;">{{end}}
{{define "layout_end"}}<p style="font-size: 14px; color: #888; margin-top: 30px; text-align: center;">Thank you for choosing Pure Platter!</p></div></body></html>{{end}}

{{define "status"}}{{template "layout_start"}}
<h1 style="color: #333;">Order Update</h1>
<p>Hello {{.Name}}! We have an update on your order.</p>
<div style="background-color: white; padding: 20px; border-radius: 8px;">
<h2 style="color: #333;">Order #{{.ShortID}}</h2>
<p style="font-size: 18px; font-weight: bold;">Status: {{.Status}}</p>
<p style="color: #666;">{{.Message}}</p>
{{if .Tracking}}<p>Tracking number: {{.Tracking}}</p>{{end}}
</div>
<p style="text-align: center; margin-top: 30px;"><a href="{{.OrdersURL}}" style="background-color: #3b82f6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px;">View Order Details</a></p>
{{template "layout_end"}}{{end}}

{{define "admin_order"}}{{template "layout_start"}}
<h1>New Order Placed</h1>
<p><strong>Order ID:</strong> {{.Order.ID.Hex}}</p>
<p><strong>Customer:</strong> {{.Order.UserFullName}}</p>
<p><strong>Email:</strong> {{.Order.UserEmail}}</p>
<p><strong>Phone:</strong> {{.Order.UserPhone}}</p>
<p><strong>Deliver to:</strong> {{.Order.DeliveryAddress}}, {{.Order.DeliveryCity}}</p>
{{if .Order.DeliveryNotes}}<p><strong>Notes:</strong> {{.Order.DeliveryNotes}}</p>{{end}}
<table style="width: 100%; border-collapse: collapse;">
<tr><th align="left">Item</th><th align="right">Qty</th><th align="right">Total</th></tr>
{{range .Order.Items}}<tr><td>{{.ProductName}}{{if .WeightLabel}} ({{.WeightLabel}}){{end}}</td><td align="right">{{.Quantity}}</td><td align="right">{{money .TotalPrice}}</td></tr>
{{end}}</table>
<p><strong>Total:</strong> {{money .Order.TotalAmount}}</p>
<p>Status: {{.Order.Status}}. Please check the admin dashboard for full details.</p>
{{template "layout_end"}}{{end}}

{{define "delivery_code"}}{{template "layout_start"}}
<h1>Your delivery code</h1>
<p>Hello {{.Name}}, give this code to our rider when order #{{.ShortID}} arrives, or enter it on the order page to confirm delivery.</p>
<p style="font-size: 32px; letter-spacing: 6px; font-weight: bold; text-align: center;">{{.Code}}</p>
{{template "layout_end"}}{{end}}

{{define "contact"}}{{template "layout_start"}}
<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.FirstName}} {{.LastName}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}Not provided{{end}}</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong></p><p style="white-space: pre-line;">{{.Message}}</p>
{{template "layout_end"}}{{end}}

{{define "quote_admin"}}{{template "layout_start"}}
<h1>New Quote Request</h1>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> <a href="mailto:{{.Email}}">{{.Email}}</a></p>
<p><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}Not provided{{end}}</p>
<p><strong>Quantity:</strong> {{.Quantity}}</p>
{{if .Message}}<p><strong>Message:</strong></p><p style="white-space: pre-line;">{{.Message}}</p>{{end}}
{{template "layout_end"}}{{end}}

{{define "quote_customer"}}{{template "layout_start"}}
<h1>Thank you, {{.Name}}!</h1>
<p>We received your quote request for <strong>{{.Quantity}}</strong> and our team will get back to you within one business day.</p>
{{template "layout_end"}}{{end}}
`))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Composer builds the storefront's messages.
type Composer struct {
	From      string
	AdminTo   string
	ContactTo string
	AppURL    string
}

func shortID(order *models.Order) string {
	hex := order.ID.Hex()
	return strings.ToUpper(hex[len(hex)-8:])
}

func displayName(order *models.Order) string {
	if name := strings.TrimSpace(order.UserFullName); name != "" {
		return name
	}
	return "there"
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (c Composer) StatusChanged(order *models.Order, status models.OrderStatus) (Message, error) {
	html, err := render("status", map[string]any{
		"Name":      displayName(order),
		"ShortID":   shortID(order),
		"Status":    titleCase(string(status)),
		"Message":   StatusMessage(status),
		"Tracking":  order.TrackingNumber,
		"OrdersURL": strings.TrimRight(c.AppURL, "/") + "/orders",
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    c.From,
		To:      []string{order.UserEmail},
		Subject: fmt.Sprintf("Order Update - #%s", shortID(order)),
		HTML:    html,
		Text:    fmt.Sprintf("Order #%s is now %s. %s", shortID(order), status, StatusMessage(status)),
	}, nil
}

func (c Composer) AdminNewOrder(order *models.Order) (Message, error) {
	html, err := render("admin_order", map[string]any{"Order": order})
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    c.From,
		To:      []string{c.AdminTo},
		Subject: fmt.Sprintf("New Order Placed: #%s", order.ID.Hex()),
		HTML:    html,
		Text: fmt.Sprintf("A new order has been placed.\n\nOrder ID: %s\nCustomer: %s\nEmail: %s\nPhone: %s\nStatus: %s\n\nPlease check the admin dashboard for full details.",
			order.ID.Hex(), order.UserFullName, order.UserEmail, order.UserPhone, order.Status),
		ReplyTo: order.UserEmail,
	}, nil
}

func (c Composer) DeliveryCode(order *models.Order, code string) (Message, error) {
	html, err := render("delivery_code", map[string]any{
		"Name":    displayName(order),
		"ShortID": shortID(order),
		"Code":    code,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		From:    c.From,
		To:      []string{order.UserEmail},
		Subject: fmt.Sprintf("Delivery code for order #%s", shortID(order)),
		HTML:    html,
		Text:    fmt.Sprintf("Your delivery confirmation code for order #%s is %s.", shortID(order), code),
	}, nil
}

func (c Composer) Contact(msg models.ContactMessage) (Message, error) {
	html, err := render("contact", msg)
	if err != nil {
		return Message{}, err
	}
	subject := strings.TrimSpace(msg.Subject)
	if subject == "" {
		subject = "General enquiry"
	}
	return Message{
		From:    c.From,
		To:      []string{c.ContactTo},
		Subject: "New Contact Message: " + subject,
		HTML:    html,
		ReplyTo: msg.Email,
	}, nil
}

// Quote returns the admin copy and the customer confirmation.
func (c Composer) Quote(q models.QuoteRequest) (Message, Message, error) {
	adminHTML, err := render("quote_admin", q)
	if err != nil {
		return Message{}, Message{}, err
	}
	customerHTML, err := render("quote_customer", q)
	if err != nil {
		return Message{}, Message{}, err
	}
	admin := Message{
		From:    c.From,
		To:      []string{c.ContactTo},
		Subject: "New Quote Request from " + q.Name,
		HTML:    adminHTML,
		ReplyTo: q.Email,
	}
	customer := Message{
		From:    c.From,
		To:      []string{q.Email},
		Subject: "Quote Request Confirmation - We'll be in touch soon!",
		HTML:    customerHTML,
	}
	return admin, customer, nil
}
