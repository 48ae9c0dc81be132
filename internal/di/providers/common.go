// Package providers contains dependency injection providers for the
// BookHaven server.
package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// cartGCInterval is how often the cart store's value log is compacted.
	cartGCInterval = 10 * time.Minute
)
