package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
	"github.com/bookhavenapp/bookhaven-server/internal/web"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	contextKeyUserID  contextKey = "user_id"
	contextKeyEmail   contextKey = "email"
	contextKeyIsAdmin contextKey = "is_admin"
	contextKeyCartID  contextKey = "cart_id"
)

const (
	sessionCookieName = "bh_session"
	cartCookieName    = "bh_cart"

	// Guest carts expire server-side after 30 days; the cookie matches.
	cartCookieMaxAge = 30 * 24 * 60 * 60
)

// withSession resolves the session token, if any, and attaches the
// signed-in user to the request context. Browser requests carry the
// token in a cookie; API clients may send it as a bearer token. An
// invalid or expired token is treated as signed out, pages and
// endpoints that need authentication use requireAuth on top.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, _, err := s.authService.VerifySessionToken(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, user.ID)
		ctx = context.WithValue(ctx, contextKeyEmail, user.Email)
		ctx = context.WithValue(ctx, contextKeyIsAdmin, user.IsAdmin())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCart makes sure every visitor has a cart identifier: signed-in
// users are keyed by user ID, guests get a cart cookie on first touch.
func (s *Server) withCart(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(cartCookieName); err == nil && cookie.Value != "" {
			ctx := context.WithValue(r.Context(), contextKeyCartID, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if getUserID(r.Context()) != "" {
			next.ServeHTTP(w, r)
			return
		}

		cartID, err := id.Generate(id.PrefixCart)
		if err != nil {
			s.logger.Error("Failed to generate cart ID", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cartCookieName,
			Value:    cartID,
			Path:     "/",
			MaxAge:   cartCookieMaxAge,
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(r.Context(), contextKeyCartID, cartID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAuth rejects unauthenticated JSON requests.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserID(r.Context()) == "" {
			response.Unauthorized(w, "Authentication required", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin ensures the authenticated user is an admin. Must be
// used after requireAuth.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAdmin(r.Context()) {
			response.Forbidden(w, "Admin access required", s.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuthPage redirects signed-out visitors to the sign-in page.
func (s *Server) requireAuthPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if getUserID(r.Context()) == "" {
			web.SetFlash(w, "Please sign in first.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionToken extracts the session token from the cookie or, failing
// that, the Authorization header.
func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// setSessionCookie stores the session token for browser requests.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie signs the browser out.
func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// cartRef builds the cart reference for the current visitor. The user
// ID wins over the guest cookie once signed in.
func cartRef(ctx context.Context) service.CartRef {
	return service.CartRef{
		UserID:    getUserID(ctx),
		SessionID: getCartID(ctx),
	}
}

// getUserID extracts the authenticated user ID from request context.
// Returns empty string if not authenticated.
func getUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(contextKeyUserID).(string); ok {
		return userID
	}
	return ""
}

// getEmail extracts the authenticated user email from request context.
// Returns empty string if not authenticated.
func getEmail(ctx context.Context) string {
	if email, ok := ctx.Value(contextKeyEmail).(string); ok {
		return email
	}
	return ""
}

// isAdmin checks if the authenticated user is an admin.
func isAdmin(ctx context.Context) bool {
	if admin, ok := ctx.Value(contextKeyIsAdmin).(bool); ok {
		return admin
	}
	return false
}

// getCartID extracts the guest cart ID from request context.
func getCartID(ctx context.Context) string {
	if cartID, ok := ctx.Value(contextKeyCartID).(string); ok {
		return cartID
	}
	return ""
}
