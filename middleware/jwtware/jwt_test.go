package jwtware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilecalc/pile-api/middleware/jwtware"
)

type principal struct {
	ID string
}

type ctxKey struct{}

var errUnknownToken = errors.New("unknown token")

// staticResolver accepts a single token
func staticResolver(valid string) jwtware.PrincipalResolverFunc {
	return func(ctx context.Context, raw string) (any, error) {
		if raw != valid {
			return nil, errUnknownToken
		}
		return &principal{ID: "42"}, nil
	}
}

func newApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Get("/protected", jwtware.New(cfg), func(c *fiber.Ctx) error {
		p, ok := c.Locals(cfgKey(cfg)).(*principal)
		if !ok {
			return c.Status(http.StatusTeapot).SendString("no principal")
		}
		return c.SendString(p.ID)
	})
	return app
}

func cfgKey(cfg jwtware.Config) string {
	if cfg.ContextKey == "" {
		return "user"
	}
	return cfg.ContextKey
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestJWTWareHeaderExtraction(t *testing.T) {
	app := newApp(jwtware.Config{Resolver: staticResolver("good-token")})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "bearer token", header: "Bearer good-token", wantStatus: 200, wantBody: "42"},
		{name: "scheme is case insensitive", header: "bearer good-token", wantStatus: 200, wantBody: "42"},
		{name: "upper case scheme", header: "BEARER good-token", wantStatus: 200, wantBody: "42"},
		{name: "missing header", header: "", wantStatus: 401, wantBody: "Unauthorized"},
		{name: "no scheme", header: "good-token", wantStatus: 401, wantBody: "Unauthorized"},
		{name: "wrong scheme", header: "Basic good-token", wantStatus: 401, wantBody: "Unauthorized"},
		{name: "scheme without space", header: "Bearergood-token", wantStatus: 401, wantBody: "Unauthorized"},
		{name: "empty token", header: "Bearer ", wantStatus: 401, wantBody: "Unauthorized"},
		{name: "unknown token", header: "Bearer other", wantStatus: 401, wantBody: "Unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			status, body := doRequest(t, app, req)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestJWTWareLookupSources(t *testing.T) {
	app := newApp(jwtware.Config{
		Resolver:    staticResolver("good-token"),
		TokenLookup: "header:Authorization,query:token,cookie:jwt",
	})

	t.Run("query", func(t *testing.T) {
		status, _ := doRequest(t, app, httptest.NewRequest("GET", "/protected?token=good-token", nil))
		assert.Equal(t, 200, status)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.AddCookie(&http.Cookie{Name: "jwt", Value: "good-token"})
		status, _ := doRequest(t, app, req)
		assert.Equal(t, 200, status)
	})

	t.Run("header still works", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		status, _ := doRequest(t, app, req)
		assert.Equal(t, 200, status)
	})

	t.Run("none present", func(t *testing.T) {
		status, _ := doRequest(t, app, httptest.NewRequest("GET", "/protected", nil))
		assert.Equal(t, 401, status)
	})
}

func TestJWTWareErrorHandlerReceivesCause(t *testing.T) {
	var got []error
	app := newApp(jwtware.Config{
		Resolver: staticResolver("good-token"),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			got = append(got, err)
			return c.Status(http.StatusForbidden).SendString(err.Error())
		},
	})

	status, _ := doRequest(t, app, httptest.NewRequest("GET", "/protected", nil))
	assert.Equal(t, http.StatusForbidden, status)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer nope")
	status, _ = doRequest(t, app, req)
	assert.Equal(t, http.StatusForbidden, status)

	require.Len(t, got, 2)
	assert.ErrorIs(t, got[0], jwtware.ErrJWTMissingOrMalformed)
	assert.ErrorIs(t, got[1], errUnknownToken)
}

func TestJWTWareContextKeyAndEnricher(t *testing.T) {
	cfg := jwtware.Config{
		Resolver:   staticResolver("good-token"),
		ContextKey: "principal",
		ContextEnricher: func(ctx context.Context, p any) context.Context {
			return context.WithValue(ctx, ctxKey{}, p)
		},
	}

	app := fiber.New()
	app.Get("/protected", jwtware.New(cfg), func(c *fiber.Ctx) error {
		fromLocals, _ := c.Locals("principal").(*principal)
		fromCtx, _ := c.UserContext().Value(ctxKey{}).(*principal)
		if fromLocals == nil || fromCtx != fromLocals {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendString(fromCtx.ID)
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	status, body := doRequest(t, app, req)
	assert.Equal(t, 200, status)
	assert.Equal(t, "42", body)
}

func TestJWTWareValidationListeners(t *testing.T) {
	errBlocked := errors.New("blocked")
	calls := 0

	app := newApp(jwtware.Config{
		Resolver: staticResolver("good-token"),
		ValidationListeners: []jwtware.ValidationListener{
			nil,
			func(c *fiber.Ctx, p any) error {
				calls++
				return errBlocked
			},
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, errBlocked) {
				return c.SendStatus(http.StatusForbidden)
			}
			return c.SendStatus(http.StatusUnauthorized)
		},
	})

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	status, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 1, calls)
}

func TestJWTWareFilterSkips(t *testing.T) {
	app := fiber.New()
	app.Get("/open", jwtware.New(jwtware.Config{
		Resolver: staticResolver("good-token"),
		Filter:   func(c *fiber.Ctx) bool { return true },
	}), func(c *fiber.Ctx) error {
		return c.SendString("open")
	})

	status, body := doRequest(t, app, httptest.NewRequest("GET", "/open", nil))
	assert.Equal(t, 200, status)
	assert.Equal(t, "open", body)
}

func TestJWTWareRequiresResolver(t *testing.T) {
	assert.Panics(t, func() {
		jwtware.New(jwtware.Config{})
	})
}
