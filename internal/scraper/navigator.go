package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/captcha"
	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/logger"
)

const (
	selCaptchaIframe   = `iframe[src*="recaptcha"]`
	selCaptchaResponse = `textarea[name="g-recaptcha-response"]`
	selSiteKey         = `[data-sitekey]`
	selDashboard       = `.dashboard-container`
	selInvoiceTable    = `table`

	// loginPathToken identifies the login page in the URL; post-login
	// detection keys on it disappearing.
	loginPathToken = "autentificare"

	pollInterval = 500 * time.Millisecond
)

// Navigator drives the portal page flow: login navigation, CAPTCHA
// resolution, post-login detection and the jump to the invoices page.
type Navigator struct {
	cfg    *config.Config
	solver captcha.Solver
	logger *logrus.Entry
}

// NewNavigator creates a new navigator
func NewNavigator(cfg *config.Config, solver captcha.Solver, log *logrus.Logger) *Navigator {
	return &Navigator{
		cfg:    cfg,
		solver: solver,
		logger: logger.WithComponent(log, "navigator"),
	}
}

// Login opens the portal login page and waits for it to settle.
func (n *Navigator) Login(ctx context.Context) error {
	n.logger.WithField("url", n.cfg.Portal.LoginURL).Info("Navigating to login page")

	navCtx, cancel := context.WithTimeout(ctx, n.cfg.Browser.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(n.cfg.Portal.LoginURL)); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	if err := n.waitSettled(navCtx); err != nil {
		return fmt.Errorf("login page did not settle: %w", err)
	}
	return nil
}

// ResolveCaptcha submits the login form, waits for the reCAPTCHA challenge
// to materialize, solves it through the external service and injects the
// token back into the page before re-submitting.
func (n *Navigator) ResolveCaptcha(ctx context.Context) error {
	if err := chromedp.Run(ctx, chromedp.Click(selLoginButton, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to click login button: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, n.cfg.Scrape.CaptchaWaitTimeout)
	err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(selCaptchaIframe, chromedp.ByQuery),
		chromedp.WaitReady(selCaptchaResponse, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("captcha challenge did not appear: %w", err)
	}

	siteKey := n.readSiteKey(ctx)

	var pageURL string
	if err := chromedp.Run(ctx, chromedp.Location(&pageURL)); err != nil {
		return fmt.Errorf("failed to read page URL: %w", err)
	}

	token, err := n.solveWithRetries(ctx, siteKey, pageURL)
	if err != nil {
		return err
	}

	if err := chromedp.Run(ctx, chromedp.Evaluate(injectTokenScript(token), nil)); err != nil {
		return fmt.Errorf("failed to inject captcha token: %w", err)
	}
	if err := sleepCtx(ctx, n.cfg.Scrape.TokenPropagationWait); err != nil {
		return err
	}
	if err := chromedp.Run(ctx, chromedp.Evaluate(submitLoginScript(), nil)); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	n.logger.Info("Captcha token injected and form submitted")
	return nil
}

// readSiteKey pulls the site key off the widget, falling back to the
// configured key when the attribute is missing.
func (n *Navigator) readSiteKey(ctx context.Context) string {
	var siteKey string
	var ok bool
	err := chromedp.Run(ctx, chromedp.AttributeValue(selSiteKey, "data-sitekey", &siteKey, &ok, chromedp.ByQuery))
	if err != nil || !ok || siteKey == "" {
		n.logger.Warn("Site key attribute not found, using fallback")
		return n.cfg.Portal.FallbackSiteKey
	}
	return siteKey
}

func (n *Navigator) solveWithRetries(ctx context.Context, siteKey, pageURL string) (string, error) {
	var lastErr error
	attempts := n.cfg.Scrape.CaptchaRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		token, err := n.solver.Solve(ctx, siteKey, pageURL)
		if err == nil {
			return token, nil
		}
		lastErr = err
		n.logger.WithError(err).WithField("attempt", attempt).Warn("Captcha solve attempt failed")
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("captcha could not be solved after %d attempts: %w", attempts, lastErr)
}

// AwaitPostLogin waits for the portal to leave the login page, then gives
// post-login scripts a moment to finish.
func (n *Navigator) AwaitPostLogin(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, n.cfg.Scrape.PostLoginTimeout)
	defer cancel()

	script := fmt.Sprintf(`!window.location.href.includes(%q) || document.querySelector(%q) !== null`,
		loginPathToken, selDashboard)

	// The submit triggers a navigation that tears down the page's
	// execution context, so evaluate can fail mid-transition. Those
	// failures mean "not yet", not "never".
	err := pollUntil(waitCtx, pollInterval, func(c context.Context) (bool, error) {
		var loggedIn bool
		if err := chromedp.Run(c, chromedp.Evaluate(script, &loggedIn)); err != nil {
			n.logger.WithError(err).Debug("Login check not ready yet")
			return false, err
		}
		return loggedIn, nil
	})
	if err != nil {
		return fmt.Errorf("login did not complete: %w", err)
	}

	n.logger.Info("Login confirmed")
	return sleepCtx(ctx, n.cfg.Scrape.PostLoginSettleWait)
}

// GoToInvoices navigates to the invoices page and reports whether the page
// actually arrived: settled, table present, URL on the right path. Failing
// any of these is reported, not thrown; the caller decides severity.
func (n *Navigator) GoToInvoices(ctx context.Context) bool {
	n.logger.WithField("url", n.cfg.Portal.InvoicesURL).Info("Navigating to invoices page")

	navCtx, cancel := context.WithTimeout(ctx, n.cfg.Browser.NavigationTimeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(n.cfg.Portal.InvoicesURL)); err != nil {
		n.logger.WithError(err).Error("Failed to open invoices page")
		return false
	}
	if err := n.waitSettled(navCtx); err != nil {
		n.logger.WithError(err).Error("Invoices page did not settle")
		return false
	}

	tableCtx, cancelTable := context.WithTimeout(ctx, n.cfg.Browser.OperationTimeout)
	err := chromedp.Run(tableCtx, chromedp.WaitVisible(selInvoiceTable, chromedp.ByQuery))
	cancelTable()
	if err != nil {
		n.logger.WithError(err).Error("Invoice table did not appear")
		return false
	}

	var pageURL string
	if err := chromedp.Run(ctx, chromedp.Location(&pageURL)); err != nil {
		n.logger.WithError(err).Error("Failed to read invoices page URL")
		return false
	}
	if !strings.Contains(pageURL, n.cfg.Portal.InvoicesPath) {
		n.logger.WithField("url", pageURL).Error("Landed on unexpected page instead of invoices")
		return false
	}
	return true
}

// pollUntil runs check every interval until it reports done. Check errors
// are transient and keep the poll going; only the context ending the wait
// is fatal.
func pollUntil(ctx context.Context, interval time.Duration, check func(context.Context) (bool, error)) error {
	for {
		done, err := check(ctx)
		if err == nil && done {
			return nil
		}
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return err
		}
	}
}

// waitSettled polls document.readyState until the page reports complete,
// then leaves a short quiet window for late scripts.
func (n *Navigator) waitSettled(ctx context.Context) error {
	for {
		var state string
		if err := chromedp.Run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return err
		}
		if state == "complete" {
			break
		}
		if err := sleepCtx(ctx, pollInterval); err != nil {
			return err
		}
	}
	return sleepCtx(ctx, pollInterval)
}

// injectTokenScript writes the token into the response textarea (creating
// it when the widget removed it) and patches grecaptcha.getResponse so the
// portal's own validation sees the token too.
func injectTokenScript(token string) string {
	return fmt.Sprintf(`(() => {
		let field = document.querySelector('textarea[name="g-recaptcha-response"]');
		if (!field) {
			field = document.createElement("textarea");
			field.name = "g-recaptcha-response";
			field.style.display = "none";
			const form = document.querySelector("form");
			(form || document.body).appendChild(field);
		}
		field.value = %q;
		field.dispatchEvent(new Event("input", { bubbles: true }));
		field.dispatchEvent(new Event("change", { bubbles: true }));
		if (window.grecaptcha) {
			window.grecaptcha.getResponse = () => %q;
		}
	})()`, token, token)
}

func submitLoginScript() string {
	return `(() => {
		const form = document.querySelector("form");
		if (form) {
			form.dispatchEvent(new Event("submit", { bubbles: true, cancelable: true }));
			if (typeof form.requestSubmit === "function") {
				form.requestSubmit();
			}
		}
	})()`
}
