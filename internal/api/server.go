// Package api provides the HTTP server for the BookHaven storefront:
// server-rendered pages plus the JSON API used by the cart and review
// AJAX and by admin tooling.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/web"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store         store.Store
	authService   *service.AuthService
	bookService   *service.BookService
	cartService   *service.CartService
	orderService  *service.OrderService
	reviewService *service.ReviewService
	adminService  *service.AdminService
	renderer      *web.Renderer
	router        *chi.Mux
	logger        *slog.Logger

	secureCookies  bool
	allowedOrigins []string

	loginLimiter  *RateLimiter
	reviewLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(cfg *config.Config, store store.Store, authService *service.AuthService, bookService *service.BookService, cartService *service.CartService, orderService *service.OrderService, reviewService *service.ReviewService, adminService *service.AdminService, renderer *web.Renderer, logger *slog.Logger) *Server {
	s := &Server{
		store:          store,
		authService:    authService,
		bookService:    bookService,
		cartService:    cartService,
		orderService:   orderService,
		reviewService:  reviewService,
		adminService:   adminService,
		renderer:       renderer,
		router:         chi.NewRouter(),
		logger:         logger,
		secureCookies:  cfg.Auth.SecureCookies,
		allowedOrigins: cfg.Server.AllowedOrigins,

		// 10 sign-in attempts per IP per minute, 20 reviews per user
		// per hour.
		loginLimiter:  NewRateLimiter(10, time.Minute, 5),
		reviewLimiter: NewRateLimiter(20, time.Hour, 3),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the rate limiter cleanup goroutines.
func (s *Server) Close() {
	s.loginLimiter.Stop()
	s.reviewLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Embedded assets.
	s.router.Handle("/static/*", web.StaticHandler())

	// Server-rendered storefront.
	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Use(s.withCart)

		r.Get("/", s.handleHomePage)
		r.Get("/books/{id}", s.handleBookPage)
		r.Get("/search", s.handleSearchPage)

		// Cart mutations are plain form posts so the storefront works
		// without JavaScript; the JSON API mirrors them for AJAX.
		r.Get("/cart", s.handleCartPage)
		r.Post("/cart/items", s.handleCartAddForm)
		r.Post("/cart/items/{bookID}", s.handleCartUpdateForm)
		r.Post("/cart/items/{bookID}/remove", s.handleCartRemoveForm)

		r.Get("/checkout", s.handleCheckoutPage)
		r.Post("/checkout", s.handleCheckoutForm)

		r.Get("/login", s.handleLoginPage)
		r.With(RateLimitMiddleware(s.loginLimiter, s.logger)).Post("/login", s.handleLoginForm)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegisterForm)
		r.Post("/logout", s.handleLogoutForm)

		r.Get("/orders/lookup", s.handleLookupPage)
		r.Post("/orders/lookup", s.handleLookupForm)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuthPage)
			r.Get("/orders", s.handleOrdersPage)
			r.Get("/orders/{id}", s.handleOrderPage)
			r.Get("/account", s.handleAccountPage)
			r.Get("/admin", s.handleAdminPage)
			r.Post("/books/{id}/reviews", s.handleReviewForm)
			r.Post("/reviews/{id}/delete", s.handleReviewDeleteForm)
		})
	})

	// JSON API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		if len(s.allowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.allowedOrigins,
				AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(s.withSession)
		r.Use(s.withCart)

		// Auth endpoints (public).
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.With(RateLimitMiddleware(s.loginLimiter, s.logger)).Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
		})

		// Catalog (public).
		r.Get("/books", s.handleListBooks)
		r.Get("/books/{id}", s.handleGetBook)
		r.Get("/books/{id}/reviews", s.handleListBookReviews)
		r.Get("/genres", s.handleListGenres)
		r.Get("/search", s.handleSearch)

		// Cart (guest or signed in; identified by cookie or session).
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Delete("/", s.handleClearCart)
			r.Post("/items", s.handleAddCartItem)
			r.Put("/items/{bookID}", s.handleUpdateCartItem)
			r.Delete("/items/{bookID}", s.handleRemoveCartItem)
		})

		// Checkout works for guests and signed-in users alike.
		r.Post("/checkout", s.handleCheckout)
		r.Post("/orders/lookup", s.handleGuestLookup)

		// Protected endpoints.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/users/me", s.handleGetCurrentUser)
			r.Get("/users/me/reviews", s.handleListMyReviews)
			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/{id}", s.handleGetOrder)
			r.With(s.rateLimitReviews).Post("/books/{id}/reviews", s.handleSubmitReview)
			r.Get("/books/{id}/reviews/me", s.handleGetMyReview)
			r.Put("/reviews/{id}", s.handleUpdateReview)
			r.Delete("/reviews/{id}", s.handleDeleteReview)
		})

		// Admin endpoints.
		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Use(s.requireAdmin)

			r.Get("/dashboard", s.handleAdminDashboard)

			r.Post("/books", s.handleCreateBook)
			r.Put("/books/{id}", s.handleUpdateBook)
			r.Delete("/books/{id}", s.handleDeleteBook)
			r.Post("/search/reindex", s.handleReindexCatalog)

			r.Get("/orders", s.handleAdminListOrders)
			r.Patch("/orders/{id}/status", s.handleUpdateOrderStatus)

			r.Get("/users", s.handleAdminListUsers)
			r.Post("/users", s.handleAdminCreateUser)
			r.Patch("/users/{id}/disabled", s.handleSetUserDisabled)
			r.Patch("/users/{id}/role", s.handleSetUserRole)
			r.Delete("/users/{id}", s.handleAdminDeleteUser)

			r.Delete("/reviews/{id}", s.handleRemoveReview)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}
