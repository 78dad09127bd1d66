package services

import (
	"context"

	"github.com/Ioioiog/engie-scraper/internal/models"
)

// InvoiceServiceInterface defines the interface for the invoice service
type InvoiceServiceInterface interface {
	// Scrape runs a scrape against the portal, serving from cache unless
	// force is set
	Scrape(ctx context.Context, force bool) (*models.ScrapeResult, error)

	// Cached returns the cached result without touching the portal
	Cached(ctx context.Context) (*models.ScrapeResult, error)

	// Health returns service health status
	Health() map[string]interface{}
}

// CacheServiceInterface defines the interface for cache service
type CacheServiceInterface interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value string) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear clears all cache entries
	Clear(ctx context.Context) error

	// Health returns cache service health status
	Health() map[string]interface{}
}

// ScrapeRunner runs one complete portal scrape.
type ScrapeRunner interface {
	Run(ctx context.Context) (*models.ScrapeResult, error)
}
