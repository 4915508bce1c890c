package pileapi

import (
	"github.com/gofiber/fiber/v2"
)

// AuthorizeOwner allows the request only when the principal id equals the
// owner id exactly. There are no roles or admin overrides.
func AuthorizeOwner(principalID, ownerID string) error {
	if principalID == "" || principalID != ownerID {
		return ErrOwnershipMismatch
	}
	return nil
}

// OwnershipGuard applies AuthorizeOwner to fiber routes
type OwnershipGuard struct {
	contextKey   string
	logger       Logger
	activitySink ActivitySink
}

// NewOwnershipGuard creates a guard reading the principal from contextKey
func NewOwnershipGuard(contextKey string) *OwnershipGuard {
	if contextKey == "" {
		contextKey = DefaultContextKey
	}
	return &OwnershipGuard{
		contextKey:   contextKey,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (g *OwnershipGuard) WithLogger(l Logger) *OwnershipGuard {
	g.logger = normalizeLogger(l)
	return g
}

// WithActivitySink configures where denials are reported
func (g *OwnershipGuard) WithActivitySink(sink ActivitySink) *OwnershipGuard {
	g.activitySink = normalizeActivitySink(sink)
	return g
}

// RequireOwner returns a handler that compares the principal against the
// route parameter param. It must run after the jwt middleware.
func (g *OwnershipGuard) RequireOwner(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromLocals(c, g.contextKey)
		if !ok {
			return ErrTokenInvalid
		}

		principalID := principal.ID.String()
		if err := AuthorizeOwner(principalID, c.Params(param)); err != nil {
			emitActivity(c.UserContext(), g.activitySink, g.logger, ActivityEvent{
				EventType: ActivityEventOwnershipDenied,
				UserID:    principalID,
				Reason:    TextCodeOwnershipMismatch,
				Metadata:  map[string]any{"path": c.Path()},
			})
			return err
		}

		return c.Next()
	}
}
