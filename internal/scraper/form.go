package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"github.com/Ioioiog/engie-scraper/internal/config"
	"github.com/Ioioiog/engie-scraper/internal/logger"
)

// Selectors for the portal's login surface. These are part of the informal
// target-site contract; if the portal changes its markup they break loudly
// during navigation or silently during extraction.
const (
	selUsername    = `input[name="username"]`
	selPassword    = `input[name="password"]`
	selLoginButton = `button[type="submit"]`

	selConsentAccept    = `#onetrust-accept-btn-handler`
	selConsentAcceptAlt = `button.cookie-consent-accept`
)

// popupCloseSelectors are the known dismiss controls for the portal's
// post-login promotional popups. First match wins.
var popupCloseSelectors = []string{
	`.modal-close`,
	`.popup-close`,
	`button[aria-label="Close"]`,
}

// FormFiller performs form and UI interactions paced like a real user, and
// verifies that the page kept what was typed.
type FormFiller struct {
	cfg    *config.Config
	logger *logrus.Entry
}

// NewFormFiller creates a new form filler
func NewFormFiller(cfg *config.Config, log *logrus.Logger) *FormFiller {
	return &FormFiller{
		cfg:    cfg,
		logger: logger.WithComponent(log, "form"),
	}
}

// formState is a snapshot of the login form taken right after filling; it
// only exists to assert the fill round-trip and is discarded afterwards.
type formState struct {
	Found    bool   `json:"found"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleCookieConsent dismisses the consent modal when one shows up. The
// modal is optional UI noise: absence of either variant is logged and the
// flow continues.
func (f *FormFiller) HandleCookieConsent(ctx context.Context) {
	if f.clickIfVisible(ctx, selConsentAccept, f.cfg.Scrape.ConsentWait) {
		f.logger.Info("Cookie consent accepted")
		return
	}
	if f.clickIfVisible(ctx, selConsentAcceptAlt, f.cfg.Scrape.PopupWait) {
		f.logger.Info("Cookie consent accepted via alternate control")
		return
	}
	f.logger.Info("No cookie consent modal found")
}

// FillCredentials types the configured credentials into the login form and
// verifies the DOM kept them. A mismatch after filling means the portal's
// scripts reset a field; submitting would silently send wrong data, so that
// is fatal.
func (f *FormFiller) FillCredentials(ctx context.Context) error {
	username := f.cfg.Portal.Username
	password := f.cfg.Portal.Password
	if username == "" || password == "" {
		return fmt.Errorf("portal credentials are not configured")
	}

	waitCtx, cancel := context.WithTimeout(ctx, f.cfg.Browser.OperationTimeout)
	err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(selUsername, chromedp.ByQuery),
		chromedp.WaitVisible(selPassword, chromedp.ByQuery),
	)
	cancel()
	if err != nil {
		return fmt.Errorf("login form fields did not appear: %w", err)
	}

	// Let the form's own scripts attach before touching it.
	if err := sleepCtx(ctx, f.cfg.Scrape.FormSettleWait); err != nil {
		return err
	}

	if err := f.fillField(ctx, selUsername, username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	if err := f.fillField(ctx, selPassword, password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	state, err := f.readFormState(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify login form: %w", err)
	}
	if err := verifyFilled(state, username, password); err != nil {
		return err
	}

	f.logger.Info("Credentials filled and verified")
	return nil
}

// verifyFilled compares the live form values against what was typed.
func verifyFilled(state formState, username, password string) error {
	if !state.Found {
		return fmt.Errorf("login form disappeared after filling")
	}
	if state.Username != username {
		return fmt.Errorf("username field does not hold the typed value")
	}
	if state.Password != password {
		return fmt.Errorf("password field does not hold the typed value")
	}
	return nil
}

// fillField runs the click/focus/clear/type/commit sequence for one input.
// Typing is character by character with a delay so the portal's paste
// detection does not trip.
func (f *FormFiller) fillField(ctx context.Context, selector, value string) error {
	pause := f.cfg.Scrape.FieldPause

	if err := chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return err
	}
	if err := sleepCtx(ctx, pause); err != nil {
		return err
	}
	if err := chromedp.Run(ctx,
		chromedp.Focus(selector, chromedp.ByQuery),
		chromedp.Evaluate(clearFieldScript(selector), nil),
	); err != nil {
		return err
	}
	if err := sleepCtx(ctx, pause); err != nil {
		return err
	}

	for _, r := range value {
		if err := chromedp.Run(ctx, chromedp.SendKeys(selector, string(r), chromedp.ByQuery)); err != nil {
			return err
		}
		if err := sleepCtx(ctx, f.cfg.Scrape.KeystrokeDelay); err != nil {
			return err
		}
	}

	if err := sleepCtx(ctx, pause); err != nil {
		return err
	}
	if err := chromedp.Run(ctx, chromedp.Evaluate(commitFieldScript(selector), nil)); err != nil {
		return err
	}
	return sleepCtx(ctx, pause)
}

// readFormState re-reads the live field values for the round-trip check.
func (f *FormFiller) readFormState(ctx context.Context) (formState, error) {
	var state formState
	script := fmt.Sprintf(`(() => {
		const u = document.querySelector(%q);
		const p = document.querySelector(%q);
		return {
			found: !!(u && p),
			username: u ? u.value : "",
			password: p ? p.value : "",
		};
	})()`, selUsername, selPassword)

	err := chromedp.Run(ctx, chromedp.Evaluate(script, &state))
	return state, err
}

// HandlePopups closes the first matching known popup, if any. Absence is
// expected and only logged.
func (f *FormFiller) HandlePopups(ctx context.Context) {
	for _, selector := range popupCloseSelectors {
		if f.clickIfVisible(ctx, selector, f.cfg.Scrape.PopupWait) {
			f.logger.WithField("selector", selector).Info("Popup dismissed")
			return
		}
	}
	f.logger.Info("No popups found")
}

// clickIfVisible is an optional-result lookup: wait up to the given budget
// for the element, click it when present, report presence. Timeouts are an
// expected outcome here, not errors.
func (f *FormFiller) clickIfVisible(ctx context.Context, selector string, wait time.Duration) bool {
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return false
	}
	if err := chromedp.Run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		f.logger.WithError(err).WithField("selector", selector).Warn("Element found but click failed")
		return false
	}
	return true
}

func clearFieldScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el) {
			el.value = "";
			el.dispatchEvent(new Event("input", { bubbles: true }));
		}
	})()`, selector)
}

func commitFieldScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (el) {
			el.dispatchEvent(new Event("change", { bubbles: true }));
			el.dispatchEvent(new Event("blur", { bubbles: true }));
		}
	})()`, selector)
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
