package pileapi

import (
	"context"
	"errors"
	"time"
)

// PrincipalStore resolves a user by identifier
type PrincipalStore interface {
	GetByID(ctx context.Context, id string) (*User, error)
}

type Auther struct {
	provider     IdentityProvider
	principals   PrincipalStore
	tokenService *TokenService
	logger       Logger
	activitySink ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, principals PrincipalStore, tokenService *TokenService) *Auther {
	return &Auther{
		provider:     provider,
		principals:   principals,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a token. On failure no user
// data is returned.
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Debug("login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", reasonFor(err))
		return nil, err
	}

	token, err := s.tokenService.Generate(user)
	if err != nil {
		s.logger.Error("login failed to sign token", "user_id", user.ID.String(), "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, user.ID.String(), "sign_failed")
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, user.ID.String(), "")

	return &LoginResult{User: user, Token: token}, nil
}

// PrincipalFromToken validates raw and resolves the user named by its "_id"
// claim. A deleted user fails closed with ErrPrincipalNotFound, as does a
// token issued before the account it names was created.
func (s *Auther) PrincipalFromToken(ctx context.Context, raw string) (*User, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventTokenRejected, "", reasonFor(err))
		return nil, err
	}

	user, err := s.principals.GetByID(ctx, claims.UserID())
	if err != nil {
		switch {
		case IsNotFound(err):
			s.emitAuthEvent(ctx, ActivityEventTokenRejected, claims.UserID(), reasonFor(ErrPrincipalNotFound))
			return nil, ErrPrincipalNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			s.logger.Error("principal lookup failed", "user_id", claims.UserID(), "error", err)
			return nil, ErrStoreUnavailable.Wrap(err)
		}
	}

	// iat has second precision, created_at does not.
	if claims.IssuedAt().Before(user.CreatedAt.Truncate(time.Second)) {
		s.emitAuthEvent(ctx, ActivityEventTokenRejected, claims.UserID(), reasonFor(ErrPrincipalNotFound))
		return nil, ErrPrincipalNotFound
	}

	return user, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID, reason string) {
	emitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: eventType,
		UserID:    userID,
		Reason:    reason,
	})
}

func reasonFor(err error) string {
	var e *Error
	if errors.As(err, &e) && e.TextCode != "" {
		return e.TextCode
	}
	return "error"
}
