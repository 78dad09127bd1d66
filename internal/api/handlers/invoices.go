package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/models"
	"github.com/Ioioiog/engie-scraper/internal/services"
)

// InvoiceHandler handles invoice-related requests
type InvoiceHandler struct {
	invoiceService services.InvoiceServiceInterface
	logger         *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService services.InvoiceServiceInterface, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// Scrape triggers an invoice scrape
// @Summary Scrape invoices from the provider portal
// @Description Runs a full browser scrape of the configured account's invoices. Served from cache when a fresh result exists, unless force=true.
// @Tags Invoices
// @Accept json
// @Produce json
// @Param force query bool false "Bypass the cache and scrape the portal"
// @Success 200 {object} models.ScrapeResult
// @Failure 429 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /invoices/scrape [post]
func (h *InvoiceHandler) Scrape(c *gin.Context) {
	start := time.Now()
	requestID := c.GetString("request_id")
	force := c.Query("force") == "true"

	h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"force":      force,
	}).Info("Processing scrape request")

	result, err := h.invoiceService.Scrape(c.Request.Context(), force)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"duration":   time.Since(start),
		}).Error("Scrape request failed")

		c.JSON(scrapeErrorStatus(err), models.ErrorResponse{
			Error:     "Scrape failed",
			Message:   err.Error(),
			Code:      scrapeErrorCode(err),
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// List returns the cached invoices
// @Summary Get cached invoices
// @Description Returns the last scraped invoices without touching the portal.
// @Tags Invoices
// @Produce json
// @Success 200 {object} models.ScrapeResult
// @Failure 404 {object} models.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	result, err := h.invoiceService.Cached(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "No cached invoices",
			Message:   "Run a scrape first",
			Code:      "CACHE_MISS",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// scrapeErrorStatus maps scrape failures to HTTP statuses. Portal and
// captcha-service failures are upstream problems, not ours.
func scrapeErrorStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "context canceled"), strings.Contains(msg, "deadline exceeded"):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func scrapeErrorCode(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "captcha"):
		return "CAPTCHA_ERROR"
	case strings.Contains(msg, "browser"):
		return "BROWSER_ERROR"
	case strings.Contains(msg, "invoices page"):
		return "NAVIGATION_ERROR"
	default:
		return "SCRAPE_ERROR"
	}
}
