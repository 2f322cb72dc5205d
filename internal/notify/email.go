// Package notify sends the best-effort order confirmation mail. Delivery
// failure is logged and never rolls back or blocks order creation.
package notify

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/nawader/farmshop/internal/models"
)

type Mailer struct {
	host     string
	port     int
	user     string
	password string
	from     string
	log      *zap.Logger
}

func NewMailer(host string, port int, user, password, from string, log *zap.Logger) *Mailer {
	return &Mailer{host: host, port: port, user: user, password: password, from: from, log: log}
}

// Configured reports whether SMTP settings are present; when false the
// mailer silently skips sending.
func (m *Mailer) Configured() bool { return m.host != "" }

// OrderConfirmationAsync fires the confirmation in a goroutine so the order
// response never waits on SMTP.
func (m *Mailer) OrderConfirmationAsync(order *models.Order) {
	if !m.Configured() || order.Email == "" {
		return
	}
	go func() {
		if err := m.orderConfirmation(order); err != nil {
			m.log.Warn("order confirmation mail failed",
				zap.String("order", order.Reference),
				zap.Error(err))
		}
	}()
}

func (m *Mailer) orderConfirmation(order *models.Order) error {
	var items strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&items, "- %s, quantity %d, price %s\n",
			it.Product.Name, it.Quantity, it.Total().StringFixed(2))
	}

	body := fmt.Sprintf(`Hello %s,

Thank you for your order from Nawader Farm.

Order reference: %s
Date: %s

Delivery:
- Name: %s
- Phone: %s
- Region: %s
- City: %s

Items:
%s
Total: %s

Status: pending. We will call you shortly to confirm.
`,
		order.CustomerName,
		order.Reference,
		order.CreatedAt.Format("2006-01-02 15:04"),
		order.CustomerName,
		order.Phone,
		order.Region,
		order.City,
		items.String(),
		order.Total().StringFixed(2),
	)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", order.Email)
	msg.SetHeader("Subject", fmt.Sprintf("Order confirmation %s - Nawader Farm", order.Reference))
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.host, m.port, m.user, m.password)
	d.SSL = m.port == 465
	return d.DialAndSend(msg)
}
