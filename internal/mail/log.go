package mail

import (
	"context"
	"log/slog"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// LogMailer records outgoing mail in the log instead of sending it.
// Used when SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendOrderConfirmation(ctx context.Context, to string, order *domain.Order) error {
	m.logger.Info("order confirmation (mail disabled)",
		"order_id", order.ID,
		"to", to,
		"total", order.TotalAmount.StringFixed(2),
	)
	return nil
}
