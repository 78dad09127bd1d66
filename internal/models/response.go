package models

import "time"

// ScrapeResult is the API-facing envelope for one completed scrape run.
type ScrapeResult struct {
	RunID      string    `json:"run_id" example:"9f1c7a66-0c2e-4f43-9a53-b2a4bb0d7b31"`
	Invoices   []Invoice `json:"invoices"`
	Count      int       `json:"count" example:"12"`
	ScrapedAt  time.Time `json:"scraped_at" example:"2024-03-05T10:30:00Z"`
	DurationMs int64     `json:"duration_ms" example:"94500"`
	Cache      bool      `json:"cache" example:"false"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error" example:"scrape failed"`
	Message   string    `json:"message" example:"captcha could not be resolved"`
	Code      string    `json:"code,omitempty" example:"CAPTCHA_ERROR"`
	Timestamp time.Time `json:"timestamp" example:"2024-03-05T10:30:00Z"`
	Path      string    `json:"path" example:"/api/v1/invoices/scrape"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services"`
}
