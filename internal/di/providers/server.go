package providers

import (
	"context"
	"net/http"
	"os"

	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/api"
	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/web"
)

// devTemplateDir is watched for live template reloads in development,
// when the server runs from a source checkout.
const devTemplateDir = "internal/web/templates"

// RendererHandle wraps the template renderer and its watcher.
type RendererHandle struct {
	*web.Renderer
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *RendererHandle) Shutdown() error {
	if h.cancel != nil {
		h.cancel()
	}
	return nil
}

// ProvideRenderer provides the HTML renderer. In development the
// template directory is watched and reloaded on change.
func ProvideRenderer(i do.Injector) (*RendererHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := web.Options{Logger: log.Logger}
	if cfg.IsDevelopment() {
		if _, err := os.Stat(devTemplateDir); err == nil {
			opts.DevDir = devTemplateDir
		}
	}

	renderer, err := web.NewRenderer(opts)
	if err != nil {
		return nil, err
	}

	handle := &RendererHandle{Renderer: renderer}
	if opts.DevDir != "" {
		ctx, cancel := context.WithCancel(context.Background())
		handle.cancel = cancel
		go func() {
			if err := renderer.Watch(ctx); err != nil {
				log.Warn("Template watcher stopped", "error", err)
			}
		}()
	}

	return handle, nil
}

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Server.Shutdown(ctx)
	h.api.Close()
	return err
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	rendererHandle := do.MustInvoke[*RendererHandle](i)

	authService := do.MustInvoke[*service.AuthService](i)
	bookService := do.MustInvoke[*service.BookService](i)
	cartService := do.MustInvoke[*service.CartService](i)
	orderService := do.MustInvoke[*service.OrderService](i)
	reviewService := do.MustInvoke[*service.ReviewService](i)
	adminService := do.MustInvoke[*service.AdminService](i)

	apiServer := api.NewServer(cfg, storeHandle.Store, authService, bookService, cartService, orderService, reviewService, adminService, rendererHandle.Renderer, log.Logger)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &HTTPServerHandle{Server: server, api: apiServer}, nil
}
