package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pilecalc/pile-api"
	"github.com/pilecalc/pile-api/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecord(t *testing.T) {
	c := metrics.New()
	ctx := context.Background()

	require.NoError(t, c.Record(ctx, pileapi.ActivityEvent{EventType: pileapi.ActivityEventLoginSuccess}))
	require.NoError(t, c.Record(ctx, pileapi.ActivityEvent{
		EventType: pileapi.ActivityEventLoginFailure,
		Reason:    pileapi.TextCodeInvalidCredentials,
	}))
	require.NoError(t, c.Record(ctx, pileapi.ActivityEvent{
		EventType: pileapi.ActivityEventLoginFailure,
		Reason:    pileapi.TextCodeInvalidCredentials,
	}))

	count, err := testutil.GatherAndCount(c.Registry(), "pileapi_activity_events_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestCollectorMiddlewareAndHandler(t *testing.T) {
	c := metrics.New()

	app := fiber.New(fiber.Config{ErrorHandler: pileapi.NewErrorHandler(nil)})
	app.Use(c.Middleware())
	app.Get("/metrics", c.Handler())
	app.Get("/users/:ID", func(ctx *fiber.Ctx) error {
		if ctx.Params("ID") == "other" {
			return pileapi.ErrOwnershipMismatch
		}
		return ctx.SendString("ok")
	})

	for _, path := range []string{"/users/a", "/users/b", "/users/other"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	assert.Contains(t, text, `pileapi_http_requests_total{method="GET",route="/users/:ID",status="200"} 2`)
	assert.Contains(t, text, `pileapi_http_requests_total{method="GET",route="/users/:ID",status="403"} 1`)
	assert.Contains(t, text, "pileapi_http_request_duration_seconds_bucket")
	assert.Contains(t, text, "go_goroutines")
}

func TestCollectorAsActivitySink(t *testing.T) {
	c := metrics.New()
	var sink pileapi.ActivitySink = pileapi.MultiActivitySink{c, pileapi.LoggingActivitySink(nil)}

	require.NoError(t, sink.Record(context.Background(), pileapi.ActivityEvent{
		EventType: pileapi.ActivityEventOwnershipDenied,
		Reason:    pileapi.TextCodeOwnershipMismatch,
	}))

	count, err := testutil.GatherAndCount(c.Registry(), "pileapi_activity_events_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
