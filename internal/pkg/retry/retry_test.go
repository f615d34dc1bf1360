package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	pkghttp "github.com/futig/rag-conversations/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &pkghttp.NetworkError{Err: errors.New("refused")}, true},
		{"wrapped network", fmt.Errorf("upload: %w", &pkghttp.NetworkError{Err: errors.New("reset")}), true},
		{"server error", &pkghttp.HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		{"rate limited", &pkghttp.HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{"client error", &pkghttp.HTTPError{StatusCode: http.StatusBadRequest}, false},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("decode response"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func fastConfig() RetryConfig {
	return RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestDo_RetriesTransientFailures(t *testing.T) {
	calls := 0
	var retries []uint

	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return &pkghttp.HTTPError{StatusCode: http.StatusBadGateway}
		}
		return nil
	}, func(n uint, _ error) { retries = append(retries, n) })

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []uint{0, 1}, retries)
}

func TestDo_StopsOnPermanentFailure(t *testing.T) {
	calls := 0
	permanent := &pkghttp.HTTPError{StatusCode: http.StatusNotFound}

	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return permanent
	}, nil)

	assert.Equal(t, 1, calls)
	var httpErr *pkghttp.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
}

func TestDo_ReturnsLastErrorAfterAttempts(t *testing.T) {
	calls := 0

	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return &pkghttp.NetworkError{Err: fmt.Errorf("attempt %d", calls)}
	}, nil)

	assert.Equal(t, 3, calls)
	assert.ErrorContains(t, err, "attempt 3")
}

func TestDo_ZeroConfigFallsBackToDefaults(t *testing.T) {
	calls := 0
	err := Do(context.Background(), RetryConfig{}, func() error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
