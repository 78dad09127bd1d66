package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/logger"
)

// permissiveCSP replaces whatever policy the portal ships. The portal's own
// CSP blocks the injected interaction scripts, so every response gets this
// header instead.
const permissiveCSP = "default-src * 'unsafe-inline' 'unsafe-eval' data: blob:"

// Session owns one Chrome process and one page context. It is not safe for
// concurrent use; the scrape pipeline is strictly sequential and only one
// operation touches the page at a time.
type Session struct {
	cfg    config.BrowserConfig
	logger *logrus.Entry

	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pageCtx       context.Context
	pageCancel    context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewSession creates a new browser session
func NewSession(cfg config.BrowserConfig, log *logrus.Logger) *Session {
	return &Session{
		cfg:    cfg,
		logger: logger.WithComponent(log, "browser"),
	}
}

// Start launches the Chrome process. The window is visible by default and
// sandboxing and web security are off: the portal rejects headless renderers
// and its CSP would otherwise block scripted interaction. Failure to start
// the process is fatal for the run.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("browser session already started")
	}
	if s.closed {
		return fmt.Errorf("browser session already closed")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(s.cfg.WindowWidth, s.cfg.WindowHeight),
	)

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(ctx, opts...)

	// An allocator only spawns Chrome on first use, so navigating the first
	// tab proves the process actually came up. That tab's context stays as
	// the session's browser context; pages open inside the same process.
	browserCtx, browserCancel := chromedp.NewContext(s.allocCtx)
	checkCtx, checkCancel := context.WithTimeout(browserCtx, 20*time.Second)
	err := chromedp.Run(checkCtx, chromedp.Navigate("about:blank"))
	checkCancel()
	if err != nil {
		browserCancel()
		s.allocCancel()
		s.allocCancel = nil
		return fmt.Errorf("failed to start browser process: %w", err)
	}
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel

	s.started = true
	s.logger.WithFields(logrus.Fields{
		"headless": s.cfg.Headless,
		"window":   fmt.Sprintf("%dx%d", s.cfg.WindowWidth, s.cfg.WindowHeight),
	}).Info("Browser process started")
	return nil
}

// NewPage opens the session's page and returns its chromedp context. The page
// forwards console messages and uncaught exceptions to the operator log and
// rewrites every response's CSP headers to the permissive policy.
func (s *Session) NewPage() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, fmt.Errorf("browser session not started")
	}
	if s.closed {
		return nil, fmt.Errorf("browser session already closed")
	}
	if s.pageCtx != nil {
		return s.pageCtx, nil
	}

	pageCtx, cancel := chromedp.NewContext(s.browserCtx)
	s.pageCtx = pageCtx
	s.pageCancel = cancel

	s.forwardPageEvents(pageCtx)
	s.interceptResponses(pageCtx)

	// Enable fetch interception at response stage for every request.
	if err := chromedp.Run(pageCtx,
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: "*", RequestStage: fetch.RequestStageResponse},
		}),
	); err != nil {
		cancel()
		s.pageCtx = nil
		s.pageCancel = nil
		return nil, fmt.Errorf("failed to enable request interception: %w", err)
	}

	s.logger.Debug("Page created with CSP interception and console forwarding")
	return pageCtx, nil
}

// forwardPageEvents logs console output and page exceptions. Page-level
// errors are operator signal, never run failures.
func (s *Session) forwardPageEvents(pageCtx context.Context) {
	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			args := make([]string, 0, len(ev.Args))
			for _, arg := range ev.Args {
				if len(arg.Value) > 0 {
					args = append(args, string(arg.Value))
				} else if arg.Description != "" {
					args = append(args, arg.Description)
				}
			}
			s.logger.WithFields(logrus.Fields{
				"type":    string(ev.Type),
				"message": strings.Join(args, " "),
			}).Debug("Page console")
		case *runtime.EventExceptionThrown:
			s.logger.WithField("exception", ev.ExceptionDetails.Error()).Warn("Page exception")
		}
	})
}

// interceptResponses strips the portal's CSP headers from every paused
// response and substitutes the permissive policy.
func (s *Session) interceptResponses(pageCtx context.Context) {
	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		event, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}

		// Resume the request off the event loop; blocking here stalls CDP.
		go func() {
			c := chromedp.FromContext(pageCtx)
			ectx := cdp.WithExecutor(pageCtx, c.Target)

			// Paused at request stage (no response yet): let it through.
			if event.ResponseStatusCode == 0 && event.ResponseErrorReason == "" {
				if err := fetch.ContinueRequest(event.RequestID).Do(ectx); err != nil {
					s.logger.WithError(err).Debug("Failed to continue request")
				}
				return
			}

			headers := make([]*fetch.HeaderEntry, 0, len(event.ResponseHeaders)+1)
			for _, h := range event.ResponseHeaders {
				name := strings.ToLower(h.Name)
				if name == "content-security-policy" || name == "content-security-policy-report-only" {
					continue
				}
				headers = append(headers, h)
			}
			headers = append(headers, &fetch.HeaderEntry{
				Name:  "Content-Security-Policy",
				Value: permissiveCSP,
			})

			if err := fetch.ContinueResponse(event.RequestID).WithResponseHeaders(headers).Do(ectx); err != nil {
				s.logger.WithError(err).Debug("Failed to continue response")
			}
		}()
	})
}

// Close tears the browser down. It is idempotent and safe to call on a
// session that never started.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.pageCancel != nil {
		s.pageCancel()
		s.pageCancel = nil
		s.pageCtx = nil
	}
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
		s.browserCtx = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	if s.started {
		s.logger.Info("Browser process closed")
	}
	return nil
}
