package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldJSONTag returns the json tag of a struct field.
func fieldJSONTag(t *testing.T, v interface{}, field string) string {
	t.Helper()
	f, ok := reflect.TypeOf(v).FieldByName(field)
	require.True(t, ok, "field %s not found", field)
	return f.Tag.Get("json")
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "user@example.com")
	t.Setenv("PORTAL_PASSWORD", "secret")
	t.Setenv("SOLVE_CAPTCHA_API_KEY", "captcha-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://my.engie.ro/autentificare", cfg.Portal.LoginURL)
	assert.Equal(t, "https://my.engie.ro/facturi", cfg.Portal.InvoicesURL)
	assert.Equal(t, "facturi", cfg.Portal.InvoicesPath)
	assert.NotEmpty(t, cfg.Portal.FallbackSiteKey)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.WindowWidth)
	assert.Equal(t, 1080, cfg.Browser.WindowHeight)
	assert.Equal(t, 2, cfg.Scrape.CaptchaRetries)
	assert.Equal(t, time.Hour, cfg.Scrape.CacheTTL)
}

func TestLoad_MissingCredentialsFails(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "")
	t.Setenv("PORTAL_PASSWORD", "")
	t.Setenv("SOLVE_CAPTCHA_API_KEY", "captcha-key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORTAL_USERNAME")
}

func TestLoad_MissingCaptchaKeyFails(t *testing.T) {
	t.Setenv("PORTAL_USERNAME", "user@example.com")
	t.Setenv("PORTAL_PASSWORD", "secret")
	t.Setenv("SOLVE_CAPTCHA_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLVE_CAPTCHA_API_KEY")
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BROWSER_HEADLESS", "true")
	t.Setenv("SCRAPE_KEYSTROKE_DELAY", "50ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 50*time.Millisecond, cfg.Scrape.KeystrokeDelay)
}

func TestCredentialsNeverSerialized(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "-", fieldJSONTag(t, cfg.Portal, "Username"))
	assert.Equal(t, "-", fieldJSONTag(t, cfg.Portal, "Password"))
	assert.Equal(t, "-", fieldJSONTag(t, cfg.Captcha, "APIKey"))
}
