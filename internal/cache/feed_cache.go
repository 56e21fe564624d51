package cache

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/coach-gateway/internal/iocdb"
	"github.com/coach-gateway/pkg/models"
)

// Source supplies the indicator feed to cache. Implemented by
// feeds.Repository.
type Source interface {
	List(ctx context.Context) ([]models.IndicatorEntry, error)
}

// FeedCache keeps an in-memory indicator store built from the feed
// repository, with automatic background refresh. Refreshes build a
// fresh store and swap it in, so lookups never see a half-loaded feed.
type FeedCache struct {
	source          Source
	store           *iocdb.Store
	mu              sync.RWMutex // Protects store pointer
	refreshInterval time.Duration
	refreshTicker   *time.Ticker
	stopChan        chan struct{}
	refreshOnce     sync.Once
}

// NewFeedCache creates a new feed cache.
func NewFeedCache(source Source, refreshInterval time.Duration) *FeedCache {
	return &FeedCache{
		source:          source,
		store:           iocdb.NewStore(),
		refreshInterval: refreshInterval,
		stopChan:        make(chan struct{}),
	}
}

// Start performs the initial load and starts the background refresh
// worker.
func (fc *FeedCache) Start(ctx context.Context) error {
	if err := fc.refresh(ctx); err != nil {
		return err
	}
	log.Printf("✓ Indicator feed cache initialized with %d indicators", fc.Store().Stats().TotalIndicators)

	fc.refreshOnce.Do(func() {
		fc.refreshTicker = time.NewTicker(fc.refreshInterval)
		go fc.refreshWorker(ctx)
		log.Printf("✓ Indicator feed refresh worker started (interval: %v)", fc.refreshInterval)
	})

	return nil
}

func (fc *FeedCache) refreshWorker(ctx context.Context) {
	for {
		select {
		case <-fc.refreshTicker.C:
			if err := fc.refresh(ctx); err != nil {
				log.Printf("⚠️  Failed to refresh indicator feed: %v", err)
			} else {
				log.Printf("✓ Indicator feed refreshed: %d indicators loaded", fc.Store().Stats().TotalIndicators)
			}
		case <-fc.stopChan:
			fc.refreshTicker.Stop()
			log.Println("✓ Indicator feed refresh worker stopped")
			return
		case <-ctx.Done():
			fc.refreshTicker.Stop()
			log.Println("✓ Indicator feed refresh worker stopped (context cancelled)")
			return
		}
	}
}

// refresh rebuilds the store from the feed source and swaps it in.
func (fc *FeedCache) refresh(ctx context.Context) error {
	entries, err := fc.source.List(ctx)
	if err != nil {
		return err
	}

	dropped := 0
	store := iocdb.NewStore(iocdb.WithDroppedEntryHandler(
		func(entry models.IndicatorEntry, reason string) {
			dropped++
			log.Printf("⚠️  Dropped indicator %s (%s): %s", entry.ID, entry.Value, reason)
		}))
	for _, e := range entries {
		store.AddIndicator(e)
	}
	if dropped > 0 {
		log.Printf("⚠️  Feed refresh dropped %d malformed indicators", dropped)
	}

	fc.mu.Lock()
	fc.store = store
	fc.mu.Unlock()

	return nil
}

// Store returns the current indicator store (thread-safe). The returned
// store is itself safe for concurrent lookups.
func (fc *FeedCache) Store() *iocdb.Store {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.store
}

// Invalidate forces an immediate rebuild from the feed source.
// Used when indicators are created or deleted through the API.
func (fc *FeedCache) Invalidate(ctx context.Context) error {
	log.Println("🔄 Invalidating indicator feed cache...")
	return fc.refresh(ctx)
}

// Stop gracefully stops the background refresh worker.
func (fc *FeedCache) Stop() {
	close(fc.stopChan)
}
