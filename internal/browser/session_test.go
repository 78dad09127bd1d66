package browser

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ioioiog/engie-scraper/internal/config"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestNewPageRequiresStart(t *testing.T) {
	s := NewSession(config.BrowserConfig{}, testLogger())
	_, err := s.NewPage()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestCloseBeforeStartIsSafe(t *testing.T) {
	s := NewSession(config.BrowserConfig{}, testLogger())
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestCloseTearsDownPageAndBrowser(t *testing.T) {
	// The page context derives from the browser context kept by Start, so
	// one Chrome process serves the whole session and Close ends both.
	s := NewSession(config.BrowserConfig{}, testLogger())
	s.browserCtx, s.browserCancel = context.WithCancel(context.Background())
	s.pageCtx, s.pageCancel = context.WithCancel(s.browserCtx)
	s.started = true
	browserCtx, pageCtx := s.browserCtx, s.pageCtx

	require.NoError(t, s.Close())
	assert.ErrorIs(t, pageCtx.Err(), context.Canceled)
	assert.ErrorIs(t, browserCtx.Err(), context.Canceled)
	assert.Nil(t, s.pageCtx)
	assert.Nil(t, s.browserCtx)

	_, err := s.NewPage()
	assert.Error(t, err)
}

func TestStartAfterCloseFails(t *testing.T) {
	s := NewSession(config.BrowserConfig{}, testLogger())
	require.NoError(t, s.Close())
	assert.Error(t, s.Start(context.Background()))
}
