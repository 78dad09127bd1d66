package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/browser"
	"github.com/Ioioiog/engie-scraper/internal/captcha"
	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/models"
)

// browserSession is the slice of the browser layer the orchestrator needs.
type browserSession interface {
	Start(ctx context.Context) error
	NewPage() (context.Context, error)
	Close() error
}

// pipeline is the sequenced portal flow. Each step runs against the page
// context produced by the session.
type pipeline interface {
	Login(ctx context.Context) error
	HandleCookieConsent(ctx context.Context)
	FillCredentials(ctx context.Context) error
	ResolveCaptcha(ctx context.Context) error
	AwaitPostLogin(ctx context.Context) error
	HandlePopups(ctx context.Context)
	GoToInvoices(ctx context.Context) bool
	Extract(ctx context.Context) ([]models.Invoice, error)
}

// portalFlow wires the concrete step implementations into one pipeline.
type portalFlow struct {
	*FormFiller
	*Navigator
	*Extractor
}

// Scraper runs one complete scrape: browser up, portal flow, browser down.
// The browser is torn down on every path, success or failure.
type Scraper struct {
	cfg        *config.Config
	logger     *logrus.Logger
	newSession func() browserSession
	flow       pipeline
}

// New creates a scraper with the production browser and portal flow.
func New(cfg *config.Config, solver captcha.Solver, logger *logrus.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		newSession: func() browserSession {
			return browser.NewSession(cfg.Browser, logger)
		},
		flow: &portalFlow{
			FormFiller: NewFormFiller(cfg, logger),
			Navigator:  NewNavigator(cfg, solver, logger),
			Extractor:  NewExtractor(logger),
		},
	}
}

// Run executes the full scrape and returns the extracted invoices.
func (s *Scraper) Run(ctx context.Context) (*models.ScrapeResult, error) {
	runID := uuid.New().String()
	log := s.logger.WithField("run_id", runID)
	started := time.Now()

	log.Info("Scrape run started")

	sess := s.newSession()
	if err := sess.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser session")
		}
	}()

	page, err := sess.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	invoices, err := s.runFlow(page)
	if err != nil {
		log.WithError(err).Error("Scrape run failed")
		return nil, err
	}

	result := &models.ScrapeResult{
		RunID:      runID,
		Invoices:   invoices,
		Count:      len(invoices),
		ScrapedAt:  time.Now().UTC(),
		DurationMs: time.Since(started).Milliseconds(),
	}
	log.WithFields(logrus.Fields{
		"count":       result.Count,
		"duration_ms": result.DurationMs,
	}).Info("Scrape run finished")
	return result, nil
}

// runFlow sequences the portal steps. Steps are strictly ordered; the
// first error aborts the rest.
func (s *Scraper) runFlow(page context.Context) ([]models.Invoice, error) {
	if err := s.flow.Login(page); err != nil {
		return nil, err
	}
	s.flow.HandleCookieConsent(page)
	if err := s.flow.FillCredentials(page); err != nil {
		return nil, err
	}
	if err := s.flow.ResolveCaptcha(page); err != nil {
		return nil, err
	}
	if err := s.flow.AwaitPostLogin(page); err != nil {
		return nil, err
	}
	s.flow.HandlePopups(page)
	if !s.flow.GoToInvoices(page) {
		return nil, fmt.Errorf("could not reach the invoices page")
	}
	return s.flow.Extract(page)
}
