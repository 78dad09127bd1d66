package captcha

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ioioiog/engie-scraper/internal/config"
)

func testConfig(baseURL string) config.CaptchaConfig {
	return config.CaptchaConfig{
		APIKey:       "test-key",
		BaseURL:      baseURL,
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  2 * time.Second,
		SubmitDelay:  10 * time.Millisecond,
		MaxRetries:   2,
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestSolve_SuccessAfterPolling(t *testing.T) {
	var polls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "test-key", r.PostFormValue("key"))
			assert.Equal(t, "userrecaptcha", r.PostFormValue("method"))
			assert.Equal(t, "site-key", r.PostFormValue("googlekey"))
			assert.Equal(t, "https://example.test/login", r.PostFormValue("pageurl"))
			fmt.Fprint(w, `{"status":1,"request":"task-42"}`)
		case "/res.php":
			assert.Equal(t, "task-42", r.URL.Query().Get("id"))
			if atomic.AddInt32(&polls, 1) < 3 {
				fmt.Fprint(w, `{"status":0,"request":"CAPCHA_NOT_READY"}`)
				return
			}
			fmt.Fprint(w, `{"status":1,"request":"the-token"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	token, err := client.Solve(context.Background(), "site-key", "https://example.test/login")
	require.NoError(t, err)
	assert.Equal(t, "the-token", token)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&polls), int32(3))
}

func TestSolve_LegacyTextResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			fmt.Fprint(w, "OK|task-7")
		case "/res.php":
			fmt.Fprint(w, "OK|legacy-token")
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	token, err := client.Solve(context.Background(), "site-key", "https://example.test/login")
	require.NoError(t, err)
	assert.Equal(t, "legacy-token", token)
}

func TestSolve_WrongUserKeyIsFatal(t *testing.T) {
	var submits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&submits, 1)
		fmt.Fprint(w, `{"status":-1,"error":"ERROR_WRONG_USER_KEY"}`)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	_, err := client.Solve(context.Background(), "site-key", "https://example.test/login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid captcha API key")
	// Not retryable, so exactly one submission.
	assert.Equal(t, int32(1), atomic.LoadInt32(&submits))
}

func TestSolve_NoSlotRetriesSubmission(t *testing.T) {
	var submits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			if atomic.AddInt32(&submits, 1) == 1 {
				fmt.Fprint(w, `{"status":-1,"error":"ERROR_NO_SLOT_AVAILABLE"}`)
				return
			}
			fmt.Fprint(w, `{"status":1,"request":"task-9"}`)
		case "/res.php":
			fmt.Fprint(w, `{"status":1,"request":"token-after-retry"}`)
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	token, err := client.Solve(context.Background(), "site-key", "https://example.test/login")
	require.NoError(t, err)
	assert.Equal(t, "token-after-retry", token)
	assert.Equal(t, int32(2), atomic.LoadInt32(&submits))
}

func TestSolve_UnsolvableAbortsPolling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			fmt.Fprint(w, `{"status":1,"request":"task-1"}`)
		case "/res.php":
			fmt.Fprint(w, `{"status":-1,"error":"ERROR_CAPTCHA_UNSOLVABLE"}`)
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), testLogger())
	_, err := client.Solve(context.Background(), "site-key", "https://example.test/login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsolvable")
}

func TestSolve_PollTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/in.php":
			fmt.Fprint(w, `{"status":1,"request":"task-1"}`)
		case "/res.php":
			fmt.Fprint(w, `{"status":0,"request":"CAPCHA_NOT_READY"}`)
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.PollTimeout = 100 * time.Millisecond

	client := NewClient(cfg, testLogger())
	_, err := client.Solve(context.Background(), "site-key", "https://example.test/login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready")
}

func TestSolve_MissingInputs(t *testing.T) {
	client := NewClient(config.CaptchaConfig{}, testLogger())
	_, err := client.Solve(context.Background(), "site-key", "https://example.test")
	assert.Error(t, err)

	client = NewClient(config.CaptchaConfig{APIKey: "k"}, testLogger())
	_, err = client.Solve(context.Background(), "", "https://example.test")
	assert.Error(t, err)
	_, err = client.Solve(context.Background(), "site-key", "")
	assert.Error(t, err)
}

func TestParseAPIBody(t *testing.T) {
	token, err := parseAPIBody([]byte(`{"status":1,"request":"tok"}`))
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = parseAPIBody([]byte(`{"status":0,"request":"CAPCHA_NOT_READY"}`))
	require.Error(t, err)
	assert.True(t, isNotReady(err))

	_, err = parseAPIBody([]byte("CAPCHA_NOT_READY"))
	require.Error(t, err)
	assert.True(t, isNotReady(err))

	token, err = parseAPIBody([]byte("OK|abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = parseAPIBody([]byte("ERROR_ZERO_BALANCE"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no balance")
}
