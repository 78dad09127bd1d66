package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntil_ImmediateSuccess(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPollUntil_TransientErrorsKeepPolling(t *testing.T) {
	// The post-submit navigation destroys the page's execution context,
	// so the first checks after a successful login can fail. They must
	// not end the wait.
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, errors.New("cannot find context with specified id")
		}
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollUntil_NotDoneRetriesUntilDone(t *testing.T) {
	calls := 0
	err := pollUntil(context.Background(), time.Millisecond, func(context.Context) (bool, error) {
		calls++
		return calls >= 4, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestPollUntil_DeadlineIsFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pollUntil(ctx, time.Millisecond, func(context.Context) (bool, error) {
		return false, errors.New("cannot find context with specified id")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollUntil_DeadlineWithoutErrorsIsFatal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pollUntil(ctx, time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
