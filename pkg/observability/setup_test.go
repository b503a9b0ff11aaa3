package observability_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iOS-Project-Lab2025/TravelinBackend/pkg/observability"
)

func TestMetricsRouter(t *testing.T) {
	h := observability.MetricsRouter(func(context.Context) error { return errors.New("postgres down") })

	for target, code := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusServiceUnavailable,
		"/metrics": http.StatusOK,
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, code, rec.Code, target)
	}
}

func TestSetupLoggerLevel(t *testing.T) {
	logger := observability.SetupLogger("test", "warn")
	require.False(t, logger.Core().Enabled(-1))
	require.True(t, logger.Core().Enabled(1))

	require.NotNil(t, observability.SetupLogger("test", "nonsense"))
}
