package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application. It is built once by
// Load and passed into components at construction time; nothing mutates it
// afterwards.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Portal   PortalConfig   `json:"portal"`
	Captcha  CaptchaConfig  `json:"captcha"`
	Browser  BrowserConfig  `json:"browser"`
	Scrape   ScrapeConfig   `json:"scrape"`
	Redis    RedisConfig    `json:"redis"`
	Log      LogConfig      `json:"log"`
	Security SecurityConfig `json:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int    `json:"port"`
	Environment  string `json:"environment"`
	ReadTimeout  int    `json:"read_timeout"`
	WriteTimeout int    `json:"write_timeout"`
	IdleTimeout  int    `json:"idle_timeout"`
}

// PortalConfig holds everything tied to the utility provider's portal: URLs,
// account credentials and the reCAPTCHA site key used when the widget does not
// expose one. Credentials are kept in memory only and never logged in
// cleartext.
type PortalConfig struct {
	LoginURL        string `json:"login_url"`
	InvoicesURL     string `json:"invoices_url"`
	InvoicesPath    string `json:"invoices_path"`
	Username        string `json:"-"`
	Password        string `json:"-"`
	FallbackSiteKey string `json:"fallback_site_key"`
}

// CaptchaConfig holds the solving-service configuration
type CaptchaConfig struct {
	APIKey       string        `json:"-"`
	BaseURL      string        `json:"base_url"`
	PollInterval time.Duration `json:"poll_interval"`
	PollTimeout  time.Duration `json:"poll_timeout"`
	SubmitDelay  time.Duration `json:"submit_delay"`
	MaxRetries   int           `json:"max_retries"`
}

// BrowserConfig holds browser process configuration. Headless defaults to
// false: the portal's bot detection behaves differently under a headless
// renderer, so runs drive a visible window.
type BrowserConfig struct {
	Headless          bool          `json:"headless"`
	WindowWidth       int           `json:"window_width"`
	WindowHeight      int           `json:"window_height"`
	OperationTimeout  time.Duration `json:"operation_timeout"`
	NavigationTimeout time.Duration `json:"navigation_timeout"`
}

// ScrapeConfig holds the pacing and wait budget of one scrape run. The fixed
// waits exist only where the portal gives no readiness signal; everything else
// is a bounded condition wait.
type ScrapeConfig struct {
	// FormSettleWait lets the login form's own scripts attach before typing.
	FormSettleWait time.Duration `json:"form_settle_wait"`
	// KeystrokeDelay paces character-by-character typing so the fill does not
	// look like a paste.
	KeystrokeDelay time.Duration `json:"keystroke_delay"`
	// FieldPause separates the click/focus/clear/type/blur phases per field.
	FieldPause time.Duration `json:"field_pause"`
	// TokenPropagationWait gives the injected captcha token time to reach the
	// site's own form handlers; there is no event to wait on.
	TokenPropagationWait time.Duration `json:"token_propagation_wait"`
	// PostLoginSettleWait covers the client-side render after authentication;
	// the portal emits no "app shell ready" signal.
	PostLoginSettleWait time.Duration `json:"post_login_settle_wait"`

	ConsentWait        time.Duration `json:"consent_wait"`
	PopupWait          time.Duration `json:"popup_wait"`
	CaptchaWaitTimeout time.Duration `json:"captcha_wait_timeout"`
	PostLoginTimeout   time.Duration `json:"post_login_timeout"`
	CaptchaRetries     int           `json:"captcha_retries"`
	CacheTTL           time.Duration `json:"cache_ttl"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	Password     string        `json:"-"`
	DB           int           `json:"db"`
	PoolSize     int           `json:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit"`
	CORS      CORSConfig      `json:"cors"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute"`
	BurstSize         int           `json:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 600),
			IdleTimeout:  getEnvAsInt("IDLE_TIMEOUT", 60),
		},
		Portal: PortalConfig{
			LoginURL:        getEnv("PORTAL_LOGIN_URL", "https://my.engie.ro/autentificare"),
			InvoicesURL:     getEnv("PORTAL_INVOICES_URL", "https://my.engie.ro/facturi"),
			InvoicesPath:    getEnv("PORTAL_INVOICES_PATH", "facturi"),
			Username:        getEnv("PORTAL_USERNAME", ""),
			Password:        getEnv("PORTAL_PASSWORD", ""),
			FallbackSiteKey: getEnv("PORTAL_RECAPTCHA_SITE_KEY", "6Ld2scIUAAAAAKzUvdu8Y3kFkYGYrjH1fYpzZ8zL"),
		},
		Captcha: CaptchaConfig{
			APIKey:       getEnv("SOLVE_CAPTCHA_API_KEY", ""),
			BaseURL:      getEnv("SOLVE_CAPTCHA_BASE_URL", "https://api.solvecaptcha.com"),
			PollInterval: getEnvAsDuration("CAPTCHA_POLL_INTERVAL", 5*time.Second),
			PollTimeout:  getEnvAsDuration("CAPTCHA_POLL_TIMEOUT", 3*time.Minute),
			SubmitDelay:  getEnvAsDuration("CAPTCHA_SUBMIT_DELAY", 15*time.Second),
			MaxRetries:   getEnvAsInt("CAPTCHA_MAX_RETRIES", 3),
		},
		Browser: BrowserConfig{
			Headless:          getEnvAsBool("BROWSER_HEADLESS", false),
			WindowWidth:       getEnvAsInt("BROWSER_WINDOW_WIDTH", 1920),
			WindowHeight:      getEnvAsInt("BROWSER_WINDOW_HEIGHT", 1080),
			OperationTimeout:  getEnvAsDuration("BROWSER_OPERATION_TIMEOUT", 60*time.Second),
			NavigationTimeout: getEnvAsDuration("BROWSER_NAVIGATION_TIMEOUT", 120*time.Second),
		},
		Scrape: ScrapeConfig{
			FormSettleWait:       getEnvAsDuration("SCRAPE_FORM_SETTLE_WAIT", 1500*time.Millisecond),
			KeystrokeDelay:       getEnvAsDuration("SCRAPE_KEYSTROKE_DELAY", 80*time.Millisecond),
			FieldPause:           getEnvAsDuration("SCRAPE_FIELD_PAUSE", 300*time.Millisecond),
			TokenPropagationWait: getEnvAsDuration("SCRAPE_TOKEN_PROPAGATION_WAIT", 2*time.Second),
			PostLoginSettleWait:  getEnvAsDuration("SCRAPE_POST_LOGIN_SETTLE_WAIT", 5*time.Second),
			ConsentWait:          getEnvAsDuration("SCRAPE_CONSENT_WAIT", 5*time.Second),
			PopupWait:            getEnvAsDuration("SCRAPE_POPUP_WAIT", 3*time.Second),
			CaptchaWaitTimeout:   getEnvAsDuration("SCRAPE_CAPTCHA_WAIT_TIMEOUT", 30*time.Second),
			PostLoginTimeout:     getEnvAsDuration("SCRAPE_POST_LOGIN_TIMEOUT", 3*time.Minute),
			CaptchaRetries:       getEnvAsInt("SCRAPE_CAPTCHA_RETRIES", 2),
			CacheTTL:             getEnvAsDuration("SCRAPE_CACHE_TTL", time.Hour),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
				CleanupInterval:   getEnvAsDuration("RATE_LIMIT_CLEANUP", 60*time.Second),
			},
			CORS: CORSConfig{
				AllowedOrigins:   []string{"*"},
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"*"},
				AllowCredentials: false,
			},
		},
	}

	// Required fields, checked before any browser process is started.
	if cfg.Portal.Username == "" || cfg.Portal.Password == "" {
		return nil, fmt.Errorf("PORTAL_USERNAME and PORTAL_PASSWORD are required")
	}
	if cfg.Captcha.APIKey == "" {
		return nil, fmt.Errorf("SOLVE_CAPTCHA_API_KEY is required")
	}

	return cfg, nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
