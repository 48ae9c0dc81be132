package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/normalize"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
	"github.com/bookhavenapp/bookhaven-server/internal/web"
)

// page assembles the layout envelope: signed-in state, cart badge, and
// any pending flash message.
func (s *Server) page(w http.ResponseWriter, r *http.Request, data any) web.PageData {
	pd := web.PageData{
		Query:     r.URL.Query().Get("q"),
		UserEmail: getEmail(r.Context()),
		IsAdmin:   isAdmin(r.Context()),
		Flash:     web.PopFlash(w, r),
		Data:      data,
	}

	if lines, err := s.cartService.CartLines(r.Context(), cartRef(r.Context())); err == nil {
		for _, line := range lines {
			pd.CartCount += line.Quantity
		}
	}
	return pd
}

// flashError turns a service error into a user-facing notice.
func (s *Server) flashError(w http.ResponseWriter, err error) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		web.SetFlash(w, domainErr.Message)
		return
	}
	s.logger.Error("Storefront request failed", "error", err)
	web.SetFlash(w, "Something went wrong. Please try again.")
}

// pageError renders a page-level failure.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if domainerrors.Is(err, domainerrors.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	s.logger.Error("Failed to render page", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

type homePageData struct {
	Listing   *service.BookListing
	GenreSlug string
	Sort      string
}

// handleHomePage renders the catalog with genre filters and pagination.
// GET /
func (s *Server) handleHomePage(w http.ResponseWriter, r *http.Request) {
	sort := parseSort(r.URL.Query().Get("sort"))

	listing, err := s.bookService.ListBooks(r.Context(), service.ListBooksRequest{
		GenreSlug: r.URL.Query().Get("genre"),
		Sort:      sort,
		Page:      queryInt(r, "page", 1),
	})
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	s.renderer.Render(w, http.StatusOK, "home.html", s.page(w, r, homePageData{
		Listing:   listing,
		GenreSlug: r.URL.Query().Get("genre"),
		Sort:      string(sort),
	}))
}

type bookPageData struct {
	Book          *domain.Book
	GenreSlug     string
	Reviews       []*domain.Review
	AverageRating float64
	MyReview      *domain.Review
}

// handleBookPage renders a book with its reviews and review form.
// GET /books/{id}
func (s *Server) handleBookPage(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	book, err := s.bookService.GetBook(r.Context(), bookID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	userID := getUserID(r.Context())
	reviews, err := s.reviewService.ListBookReviews(r.Context(), bookID, userID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	data := bookPageData{
		Book:      book,
		GenreSlug: normalize.GenreSlug(book.Genre),
		Reviews:   reviews,
	}
	if len(reviews) > 0 {
		sum := 0
		for _, review := range reviews {
			sum += review.Rating
		}
		data.AverageRating = float64(sum) / float64(len(reviews))
	}
	if userID != "" {
		if mine, err := s.reviewService.GetMyReviewForBook(r.Context(), userID, bookID); err == nil {
			data.MyReview = mine
		}
	}

	s.renderer.Render(w, http.StatusOK, "book.html", s.page(w, r, data))
}

// handleSearchPage renders full-text search results.
// GET /search?q=
func (s *Server) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var books []*domain.Book
	if query != "" {
		var err error
		books, err = s.bookService.SearchBooks(r.Context(), query, 50)
		if err != nil && !domainerrors.Is(err, domainerrors.ErrValidation) {
			s.pageError(w, r, err)
			return
		}
	}

	s.renderer.Render(w, http.StatusOK, "search.html", s.page(w, r, struct {
		Books []*domain.Book
	}{Books: books}))
}

// handleCartPage renders the cart, revalidated against current stock.
// GET /cart
func (s *Server) handleCartPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.cartService.GetCart(r.Context(), cartRef(r.Context()))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderer.Render(w, http.StatusOK, "cart.html", s.page(w, r, view))
}

// handleCartAddForm adds a book to the cart from a product page form.
// POST /cart/items
func (s *Server) handleCartAddForm(w http.ResponseWriter, r *http.Request) {
	bookID := r.FormValue("book_id")
	quantity := formInt(r, "quantity", 1)

	result, err := s.cartService.AddItem(r.Context(), cartRef(r.Context()), bookID, quantity)
	if err != nil {
		s.flashError(w, err)
		http.Redirect(w, r, "/books/"+bookID, http.StatusSeeOther)
		return
	}

	if result.AddedQuantity < result.RequestedQuantity {
		web.SetFlash(w, fmt.Sprintf("Only %d could be added; the rest is out of stock.", result.AddedQuantity))
	} else {
		web.SetFlash(w, "Added to your cart.")
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// handleCartUpdateForm sets a line quantity; zero removes it.
// POST /cart/items/{bookID}
func (s *Server) handleCartUpdateForm(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	if _, err := s.cartService.UpdateItem(r.Context(), cartRef(r.Context()), bookID, formInt(r, "quantity", 1)); err != nil {
		s.flashError(w, err)
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

// handleCartRemoveForm drops a line from the cart.
// POST /cart/items/{bookID}/remove
func (s *Server) handleCartRemoveForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cartService.RemoveItem(r.Context(), cartRef(r.Context()), chi.URLParam(r, "bookID")); err != nil {
		s.flashError(w, err)
	}
	http.Redirect(w, r, "/cart", http.StatusSeeOther)
}

type checkoutPageData struct {
	Cart           *service.CartView
	IdempotencyKey string
	Email          string
	ShipLine1      string
	ShipLine2      string
	ShipCity       string
	ShipState      string
	ShipZip        string
}

// handleCheckoutPage renders the shipping form with a fresh idempotency
// key, so a double-submitted form cannot place two orders.
// GET /checkout
func (s *Server) handleCheckoutPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.cartService.GetCart(r.Context(), cartRef(r.Context()))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	if len(view.Lines) == 0 {
		web.SetFlash(w, "Your cart is empty.")
		http.Redirect(w, r, "/cart", http.StatusSeeOther)
		return
	}

	s.renderer.Render(w, http.StatusOK, "checkout.html", s.page(w, r, checkoutPageData{
		Cart:           view,
		IdempotencyKey: uuid.NewString(),
	}))
}

// handleCheckoutForm places the order and renders the confirmation.
// POST /checkout
func (s *Server) handleCheckoutForm(w http.ResponseWriter, r *http.Request) {
	req := service.CheckoutRequest{
		Email:          r.FormValue("email"),
		ShipLine1:      r.FormValue("ship_line1"),
		ShipLine2:      r.FormValue("ship_line2"),
		ShipCity:       r.FormValue("ship_city"),
		ShipState:      r.FormValue("ship_state"),
		ShipZip:        r.FormValue("ship_zip"),
		IdempotencyKey: r.FormValue("idempotency_key"),
	}

	resp, err := s.orderService.Checkout(r.Context(), cartRef(r.Context()), req)
	if err != nil {
		s.flashError(w, err)
		http.Redirect(w, r, "/checkout", http.StatusSeeOther)
		return
	}

	web.SetFlash(w, "Order placed! A confirmation is on its way to your inbox.")
	s.renderer.Render(w, http.StatusCreated, "order.html", s.page(w, r, struct {
		Order    *domain.Order
		Adjusted []store.AdjustedLine
	}{Order: resp.Order, Adjusted: resp.Adjusted}))
}

// handleLoginPage renders the sign-in form.
// GET /login
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.renderer.Render(w, http.StatusOK, "login.html", s.page(w, r, struct{ Email string }{}))
}

// handleLoginForm signs the visitor in and merges their guest cart.
// POST /login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authService.Login(r.Context(), service.LoginRequest{
		Email:         r.FormValue("email"),
		Password:      r.FormValue("password"),
		SessionCartID: getCartID(r.Context()),
	})
	if err != nil {
		s.flashError(w, err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	s.setSessionCookie(w, resp.Token, resp.ExpiresAt)
	web.SetFlash(w, "Welcome back, "+resp.User.FirstName+".")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleRegisterPage renders the account creation form.
// GET /register
func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	s.renderer.Render(w, http.StatusOK, "register.html", s.page(w, r, struct {
		FirstName, LastName, Email string
	}{}))
}

// handleRegisterForm creates the account and signs it in.
// POST /register
func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	resp, err := s.authService.Register(r.Context(), service.RegisterRequest{
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		FirstName: r.FormValue("first_name"),
		LastName:  r.FormValue("last_name"),
	})
	if err != nil {
		s.flashError(w, err)
		http.Redirect(w, r, "/register", http.StatusSeeOther)
		return
	}

	s.setSessionCookie(w, resp.Token, resp.ExpiresAt)
	web.SetFlash(w, "Welcome to BookHaven, "+resp.User.FirstName+"!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogoutForm signs the visitor out.
// POST /logout
func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	s.clearSessionCookie(w)
	web.SetFlash(w, "You are signed out.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleOrdersPage renders the signed-in user's order history.
// GET /orders
func (s *Server) handleOrdersPage(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orderService.ListOrders(r.Context(), getUserID(r.Context()))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderer.Render(w, http.StatusOK, "orders.html", s.page(w, r, struct {
		Orders []*domain.Order
	}{Orders: orders}))
}

// handleOrderPage renders one of the signed-in user's orders.
// GET /orders/{id}
func (s *Server) handleOrderPage(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.GetOrder(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderer.Render(w, http.StatusOK, "order.html", s.page(w, r, struct {
		Order    *domain.Order
		Adjusted []store.AdjustedLine
	}{Order: order}))
}

// handleLookupPage renders the guest order lookup form.
// GET /orders/lookup
func (s *Server) handleLookupPage(w http.ResponseWriter, r *http.Request) {
	s.renderer.Render(w, http.StatusOK, "lookup.html", s.page(w, r, struct {
		OrderID, Email string
	}{}))
}

// handleLookupForm finds a guest order and renders it.
// POST /orders/lookup
func (s *Server) handleLookupForm(w http.ResponseWriter, r *http.Request) {
	order, err := s.orderService.GuestLookup(r.Context(), service.GuestLookupRequest{
		OrderID: r.FormValue("order_id"),
		Email:   r.FormValue("email"),
	})
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrNotFound) {
			web.SetFlash(w, "No order matched that number and email.")
		} else {
			s.flashError(w, err)
		}
		http.Redirect(w, r, "/orders/lookup", http.StatusSeeOther)
		return
	}

	s.renderer.Render(w, http.StatusOK, "order.html", s.page(w, r, struct {
		Order    *domain.Order
		Adjusted []store.AdjustedLine
	}{Order: order}))
}

// handleAccountPage renders the profile: details, orders, reviews.
// GET /account
func (s *Server) handleAccountPage(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	orders, err := s.orderService.ListOrders(r.Context(), userID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	reviews, err := s.reviewService.ListMyReviews(r.Context(), userID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}

	s.renderer.Render(w, http.StatusOK, "account.html", s.page(w, r, struct {
		User    *domain.User
		Orders  []*domain.Order
		Reviews []*domain.Review
	}{User: user, Orders: orders, Reviews: reviews}))
}

// handleAdminPage renders the dashboard. Non-admins get a 404 rather
// than a hint that the page exists.
// GET /admin
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r.Context()) {
		http.NotFound(w, r)
		return
	}

	dash, err := s.adminService.GetDashboard(r.Context())
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderer.Render(w, http.StatusOK, "admin.html", s.page(w, r, struct {
		Dashboard *service.Dashboard
	}{Dashboard: dash}))
}

// handleReviewForm submits a review from the book page.
// POST /books/{id}/reviews
func (s *Server) handleReviewForm(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	userID := getUserID(r.Context())
	if !s.reviewLimiter.Allow(userID) {
		web.SetFlash(w, "You are reviewing too quickly. Please slow down.")
		http.Redirect(w, r, "/books/"+bookID, http.StatusSeeOther)
		return
	}

	_, err := s.reviewService.SubmitReview(r.Context(), userID, bookID, service.ReviewRequest{
		Rating:  formInt(r, "rating", 0),
		Comment: r.FormValue("comment"),
	})
	if err != nil {
		s.flashError(w, err)
	} else {
		web.SetFlash(w, "Thanks for your review.")
	}
	http.Redirect(w, r, "/books/"+bookID, http.StatusSeeOther)
}

// handleReviewDeleteForm removes the caller's review.
// POST /reviews/{id}/delete
func (s *Server) handleReviewDeleteForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.reviewService.DeleteReview(r.Context(), getUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		s.flashError(w, err)
	} else {
		web.SetFlash(w, "Review removed.")
	}

	target := r.Referer()
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
