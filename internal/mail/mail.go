// Package mail sends transactional email. When no SMTP host is
// configured the server falls back to a logging mailer, so checkout
// never depends on a mail server being reachable.
package mail

import (
	"context"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
)

// Mailer delivers transactional messages.
type Mailer interface {
	// SendOrderConfirmation emails an order summary to the given address.
	SendOrderConfirmation(ctx context.Context, to string, order *domain.Order) error
}
