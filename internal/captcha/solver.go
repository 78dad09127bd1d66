package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/logger"
)

const (
	submitPath = "/in.php"
	resultPath = "/res.php"

	statusOK    = 1
	statusError = -1

	notReadyMarker         = "CAPCHA_NOT_READY"
	errorNoSlotAvailable   = "ERROR_NO_SLOT_AVAILABLE"
	errorCaptchaUnsolvable = "ERROR_CAPTCHA_UNSOLVABLE"
)

// Solver resolves a reCAPTCHA challenge for a page and returns the response
// token. The navigation layer consumes this interface only; the concrete
// implementation talks to an external solving service.
type Solver interface {
	Solve(ctx context.Context, siteKey, pageURL string) (string, error)
}

// apiResponse covers both the in.php and res.php JSON payloads.
type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
	Error   string `json:"error"`
}

// Client is a Solver backed by the SolveCaptcha HTTP API: one submission
// request followed by result polling until the worker finishes.
type Client struct {
	cfg    config.CaptchaConfig
	client *http.Client
	logger *logrus.Entry
}

// NewClient creates a new solving-service client
func NewClient(cfg config.CaptchaConfig, log *logrus.Logger) *Client {
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: logger.WithComponent(log, "captcha"),
	}
}

// Solve submits the challenge and polls for the token. Any error after the
// internal submission retries aborts the caller's run; there is no partial
// result.
func (c *Client) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("captcha API key is not configured")
	}
	if siteKey == "" || pageURL == "" {
		return "", fmt.Errorf("captcha solve requires a site key and a page URL")
	}

	c.logger.WithFields(logrus.Fields{
		"site_key": siteKey,
		"page_url": pageURL,
	}).Info("Submitting captcha to solving service")

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		taskID, err := c.submit(ctx, siteKey, pageURL)
		if err != nil {
			lastErr = err
			if !retryable(err) || attempt == c.cfg.MaxRetries {
				return "", fmt.Errorf("captcha submission failed: %w", err)
			}
			c.logger.WithError(err).WithField("attempt", attempt).Warn("Captcha submission failed, retrying")
			if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
				return "", err
			}
			continue
		}

		// Workers rarely answer before the initial processing window.
		if err := sleepCtx(ctx, c.cfg.SubmitDelay); err != nil {
			return "", err
		}

		token, err := c.poll(ctx, taskID)
		if err != nil {
			return "", err
		}
		return token, nil
	}

	return "", fmt.Errorf("captcha not solved after %d attempts: %w", c.cfg.MaxRetries, lastErr)
}

// submit sends the challenge to in.php and returns the task ID
func (c *Client) submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	form := url.Values{}
	form.Set("key", c.cfg.APIKey)
	form.Set("method", "userrecaptcha")
	form.Set("googlekey", siteKey)
	form.Set("pageurl", pageURL)
	form.Set("json", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+submitPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}

	taskID, err := parseAPIBody(body)
	if err != nil {
		return "", err
	}
	if taskID == "" {
		return "", fmt.Errorf("solving service returned an empty task id")
	}

	c.logger.WithField("task_id", taskID).Debug("Captcha accepted by solving service")
	return taskID, nil
}

// poll queries res.php until the token is ready or the poll budget runs out
func (c *Client) poll(ctx context.Context, taskID string) (string, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.cfg.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			return "", fmt.Errorf("captcha result not ready after %v", c.cfg.PollTimeout)
		case <-ticker.C:
			resultURL := fmt.Sprintf("%s%s?key=%s&action=get&id=%s&json=1",
				c.cfg.BaseURL, resultPath, url.QueryEscape(c.cfg.APIKey), url.QueryEscape(taskID))

			req, err := http.NewRequestWithContext(pollCtx, http.MethodGet, resultURL, nil)
			if err != nil {
				return "", fmt.Errorf("failed to build result request: %w", err)
			}

			body, err := c.do(req)
			if err != nil {
				c.logger.WithError(err).Warn("Captcha result check failed")
				continue
			}

			token, err := parseAPIBody(body)
			if err != nil {
				if isNotReady(err) {
					continue
				}
				return "", err
			}
			if token != "" {
				c.logger.WithField("task_id", taskID).Info("Captcha solved")
				return token, nil
			}
		}
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solving service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solving service returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read solving service response: %w", err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("solving service returned an empty body")
	}
	return body, nil
}

// parseAPIBody accepts either the JSON envelope or the legacy "OK|..."
// text responses the service still emits for some accounts.
func parseAPIBody(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err == nil && (resp.Status != 0 || resp.Request != "" || resp.Error != "") {
		switch resp.Status {
		case statusOK:
			return resp.Request, nil
		case statusError:
			return "", mapAPIError(resp.Error)
		default:
			if resp.Request == notReadyMarker || resp.Request == "" {
				return "", errors.New(notReadyMarker)
			}
			return "", mapAPIError(resp.Request)
		}
	}

	text := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(text, "OK|"):
		return strings.TrimPrefix(text, "OK|"), nil
	case text == notReadyMarker:
		return "", errors.New(notReadyMarker)
	default:
		return "", mapAPIError(text)
	}
}

func mapAPIError(msg string) error {
	switch {
	case strings.Contains(msg, errorNoSlotAvailable):
		return fmt.Errorf("solving service temporarily unavailable: %s", msg)
	case strings.Contains(msg, "ERROR_WRONG_USER_KEY"), strings.Contains(msg, "ERROR_KEY_DOES_NOT_EXIST"):
		return fmt.Errorf("invalid captcha API key: %s", msg)
	case strings.Contains(msg, "ERROR_ZERO_BALANCE"):
		return fmt.Errorf("captcha account has no balance: %s", msg)
	case strings.Contains(msg, errorCaptchaUnsolvable):
		return fmt.Errorf("captcha reported unsolvable: %s", msg)
	default:
		return fmt.Errorf("solving service error: %s", msg)
	}
}

func isNotReady(err error) bool {
	return err != nil && strings.Contains(err.Error(), notReadyMarker)
}

func retryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, errorNoSlotAvailable) ||
		strings.Contains(msg, "temporarily unavailable") ||
		strings.Contains(msg, "timeout")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
