package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	cfg    config.SMTPConfig
	logger *slog.Logger

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer creates a mailer for the configured relay.
func NewSMTPMailer(cfg config.SMTPConfig, logger *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		logger: logger,
		send:   smtp.SendMail,
	}
}

// SendOrderConfirmation emails an order summary to the given address.
func (m *SMTPMailer) SendOrderConfirmation(ctx context.Context, to string, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject := fmt.Sprintf("Order confirmation %s", order.ID)
	body := orderConfirmationBody(order)
	msg := buildMessage(m.cfg.From, to, subject, body)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(m.cfg.Addr(), auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}

	m.logger.Info("sent order confirmation",
		"order_id", order.ID,
		"to", to,
	)
	return nil
}

// buildMessage assembles a plain-text RFC 5322 message.
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func orderConfirmationBody(order *domain.Order) string {
	var b strings.Builder
	b.WriteString("Thank you for your order!\r\n\r\n")
	fmt.Fprintf(&b, "Order number: %s\r\n", order.ID)
	fmt.Fprintf(&b, "Placed: %s\r\n\r\n", order.CreatedAt.Format("January 2, 2006"))

	for _, item := range order.Items {
		title := item.BookTitle
		if title == "" {
			title = item.BookID
		}
		fmt.Fprintf(&b, "  %d x %s @ $%s = $%s\r\n",
			item.Quantity, title,
			item.UnitPriceAtPurchase.StringFixed(2),
			item.Subtotal().StringFixed(2),
		)
	}

	fmt.Fprintf(&b, "\r\nTotal: $%s\r\n\r\n", order.TotalAmount.StringFixed(2))

	b.WriteString("Shipping to:\r\n")
	fmt.Fprintf(&b, "  %s\r\n", order.Shipping.Line1)
	if order.Shipping.Line2 != "" {
		fmt.Fprintf(&b, "  %s\r\n", order.Shipping.Line2)
	}
	fmt.Fprintf(&b, "  %s, %s %s\r\n", order.Shipping.City, order.Shipping.State, order.Shipping.Zip)

	if order.IsGuest() {
		b.WriteString("\r\nYou checked out as a guest. Keep this order number and the email\r\n")
		b.WriteString("address you used; together they let you look the order up later.\r\n")
	}

	return b.String()
}
