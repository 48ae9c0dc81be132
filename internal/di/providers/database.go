package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
	"github.com/bookhavenapp/bookhaven-server/internal/search"
	"github.com/bookhavenapp/bookhaven-server/internal/store/carts"
	"github.com/bookhavenapp/bookhaven-server/internal/store/sqlite"
)

// StoreHandle wraps the relational store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.DatabasePath(), log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.DatabasePath())
	return &StoreHandle{Store: db}, nil
}

// CartStoreHandle wraps the cart store and its GC loop.
type CartStoreHandle struct {
	*carts.Store
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *CartStoreHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvideCartStore provides the session cart store.
func ProvideCartStore(i do.Injector) (*CartStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	cartStore, err := carts.Open(cfg.CartStorePath(), log.Logger)
	if err != nil {
		return nil, err
	}

	// Badger reclaims expired guest carts only when the value log is
	// compacted, so run GC periodically.
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cartGCInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cartStore.RunGC()
			}
		}
	}()

	log.Info("Cart store initialized", "path", cfg.CartStorePath())
	return &CartStoreHandle{Store: cartStore, cancel: cancel}, nil
}

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the catalog search index, wired into the
// store so book writes keep it current.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	idx, err := search.NewIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	storeHandle.SetSearchIndexer(idx)

	log.Info("Search index initialized", "path", cfg.SearchIndexPath())
	return &SearchIndexHandle{Index: idx}, nil
}
