package pileapi_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pilecalc/pile-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext(t *testing.T) {
	user := testUser()

	tests := []struct {
		name   string
		ctx    context.Context
		wantOK bool
	}{
		{name: "user present", ctx: pileapi.WithContext(context.Background(), user), wantOK: true},
		{name: "empty context", ctx: context.Background(), wantOK: false},
		{name: "nil user", ctx: pileapi.WithContext(context.Background(), nil), wantOK: false},
		{name: "wrong key type", ctx: context.WithValue(context.Background(), "user", user), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pileapi.FromContext(tt.ctx)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Same(t, user, got)
			}
		})
	}
}

func TestPrincipalFromLocals(t *testing.T) {
	user := testUser()

	tests := []struct {
		name   string
		key    string
		setup  func(c *fiber.Ctx)
		wantOK bool
	}{
		{
			name:   "from locals",
			key:    "user",
			setup:  func(c *fiber.Ctx) { c.Locals("user", user) },
			wantOK: true,
		},
		{
			name:   "empty key uses default",
			key:    "",
			setup:  func(c *fiber.Ctx) { c.Locals(pileapi.DefaultContextKey, user) },
			wantOK: true,
		},
		{
			name:   "custom key",
			key:    "principal",
			setup:  func(c *fiber.Ctx) { c.Locals("principal", user) },
			wantOK: true,
		},
		{
			name: "falls back to user context",
			key:  "user",
			setup: func(c *fiber.Ctx) {
				c.SetUserContext(pileapi.WithContext(c.UserContext(), user))
			},
			wantOK: true,
		},
		{
			name:   "wrong type in locals",
			key:    "user",
			setup:  func(c *fiber.Ctx) { c.Locals("user", "john@x.com") },
			wantOK: false,
		},
		{
			name:   "nothing set",
			key:    "user",
			setup:  func(c *fiber.Ctx) {},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error {
				tt.setup(c)
				got, ok := pileapi.PrincipalFromLocals(c, tt.key)
				assert.Equal(t, tt.wantOK, ok)
				if tt.wantOK {
					assert.Same(t, user, got)
				}
				return c.SendStatus(fiber.StatusNoContent)
			})

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
		})
	}
}
