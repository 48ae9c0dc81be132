package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
	"github.com/bookhavenapp/bookhaven-server/internal/mail"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideMailer provides the order confirmation mailer. Without SMTP
// configuration confirmations are logged instead of sent.
func ProvideMailer(i do.Injector) (mail.Mailer, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.SMTP.Enabled() {
		log.Info("SMTP not configured, order confirmations will be logged")
		return mail.NewLogMailer(log.Logger), nil
	}

	log.Info("SMTP mailer configured", "host", cfg.SMTP.Host, "from", cfg.SMTP.From)
	return mail.NewSMTPMailer(cfg.SMTP, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cartHandle := do.MustInvoke[*CartStoreHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, cartHandle.Store, tokens, validate, log.Logger), nil
}

// ProvideBookService provides the catalog service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, searchHandle.Index, validate, log.Logger), nil
}

// ProvideCartService provides the cart service.
func ProvideCartService(i do.Injector) (*service.CartService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cartHandle := do.MustInvoke[*CartStoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewCartService(storeHandle.Store, cartHandle.Store, log.Logger), nil
}

// ProvideOrderService provides the checkout and order service.
func ProvideOrderService(i do.Injector) (*service.OrderService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cartService := do.MustInvoke[*service.CartService](i)
	mailer := do.MustInvoke[mail.Mailer](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewOrderService(storeHandle.Store, cartService, mailer, validate, log.Logger), nil
}

// ProvideReviewService provides the review service.
func ProvideReviewService(i do.Injector) (*service.ReviewService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReviewService(storeHandle.Store, validate, log.Logger), nil
}

// ProvideAdminService provides the administration service.
func ProvideAdminService(i do.Injector) (*service.AdminService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validate := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAdminService(storeHandle.Store, validate, log.Logger), nil
}

// WarmSearchIndex fills an empty search index from the catalog at
// startup, covering first boot and mapping-version rebuilds.
func WarmSearchIndex(i do.Injector) {
	log := do.MustInvoke[*logger.Logger](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	bookService := do.MustInvoke[*service.BookService](i)

	ctx := context.Background()

	docs, err := searchHandle.DocumentCount()
	if err != nil {
		log.Warn("Failed to read search index size", "error", err)
		return
	}
	books, err := storeHandle.CountBooks(ctx, "")
	if err != nil {
		log.Warn("Failed to count catalog", "error", err)
		return
	}
	if docs > 0 || books == 0 {
		return
	}

	log.Info("Search index empty, reindexing catalog", "books", books)
	if err := bookService.ReindexCatalog(ctx); err != nil {
		log.Error("Failed to reindex catalog", "error", err)
	}
}
