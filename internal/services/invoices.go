package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/models"
)

// InvoiceService serves invoice data, caching full scrape results so
// repeated API calls do not hammer the portal. Scrapes are serialized:
// one browser flow runs at a time.
type InvoiceService struct {
	cfg     *config.Config
	runner  ScrapeRunner
	cache   CacheServiceInterface
	logger  *logrus.Logger
	scrapeM sync.Mutex

	lastRunAt  time.Time
	lastRunErr error
	statusM    sync.RWMutex
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(cfg *config.Config, runner ScrapeRunner, cache CacheServiceInterface, logger *logrus.Logger) InvoiceServiceInterface {
	return &InvoiceService{
		cfg:    cfg,
		runner: runner,
		cache:  cache,
		logger: logger,
	}
}

// cacheKey derives the cache key from a hash of the portal account so the
// username never appears in Redis keys or logs.
func (s *InvoiceService) cacheKey() string {
	sum := sha256.Sum256([]byte(s.cfg.Portal.Username))
	return "invoices:" + hex.EncodeToString(sum[:8])
}

// Scrape returns invoices for the configured account. Unless force is set,
// a fresh cached result short-circuits the browser flow entirely.
func (s *InvoiceService) Scrape(ctx context.Context, force bool) (*models.ScrapeResult, error) {
	if !force {
		if result, err := s.Cached(ctx); err == nil {
			return result, nil
		}
	}

	s.scrapeM.Lock()
	defer s.scrapeM.Unlock()

	// Another request may have finished the scrape while we waited.
	if !force {
		if result, err := s.Cached(ctx); err == nil {
			return result, nil
		}
	}

	result, err := s.runner.Run(ctx)
	s.recordRun(err)
	if err != nil {
		return nil, err
	}

	s.storeCached(ctx, result)
	return result, nil
}

// Cached returns the cached result, or an error when nothing usable is
// cached.
func (s *InvoiceService) Cached(ctx context.Context) (*models.ScrapeResult, error) {
	raw, err := s.cache.Get(ctx, s.cacheKey())
	if err != nil {
		return nil, fmt.Errorf("no cached invoices available")
	}

	var result models.ScrapeResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		s.logger.WithError(err).Warn("Discarding undecodable cached result")
		_ = s.cache.Delete(ctx, s.cacheKey())
		return nil, fmt.Errorf("no cached invoices available")
	}

	result.Cache = true
	return &result, nil
}

func (s *InvoiceService) storeCached(ctx context.Context, result *models.ScrapeResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to encode scrape result for cache")
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(), string(raw)); err != nil {
		s.logger.WithError(err).Warn("Failed to cache scrape result")
	}
}

func (s *InvoiceService) recordRun(err error) {
	s.statusM.Lock()
	s.lastRunAt = time.Now().UTC()
	s.lastRunErr = err
	s.statusM.Unlock()
}

// Health returns service health status
func (s *InvoiceService) Health() map[string]interface{} {
	s.statusM.RLock()
	defer s.statusM.RUnlock()

	health := map[string]interface{}{
		"status": "ok",
	}
	if !s.lastRunAt.IsZero() {
		health["last_run_at"] = s.lastRunAt.Format(time.RFC3339)
	}
	if s.lastRunErr != nil {
		health["status"] = "degraded"
		health["last_run_error"] = s.lastRunErr.Error()
	}
	return health
}
