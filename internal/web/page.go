package web

// PageData is the envelope every page template receives. Data carries
// the page-specific payload; the rest feeds the shared layout.
type PageData struct {
	Query     string
	UserEmail string
	IsAdmin   bool
	CartCount int
	Flash     string
	Data      any
}
