package pileapi

import (
	"context"
	"errors"
)

// UserTracker is a store we can use to retrieve users and record logins
type UserTracker interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

type timingBurner interface {
	burn(password string)
}

// UserProvider is the local credential verifier
type UserProvider struct {
	store          UserTracker
	hasher         PasswordAuthenticator
	logger         Logger
	activitySink   ActivitySink
	strictActivity bool
}

var _ IdentityProvider = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker, hasher PasswordAuthenticator) *UserProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &UserProvider{
		store:        store,
		hasher:       hasher,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

func (u *UserProvider) WithActivitySink(sink ActivitySink) *UserProvider {
	u.activitySink = normalizeActivitySink(sink)
	return u
}

// WithStrictActivityTracking makes a failed last activity write fail the
// login. By default the failure is logged and the login proceeds.
func (u *UserProvider) WithStrictActivityTracking(strict bool) *UserProvider {
	u.strictActivity = strict
	return u
}

// VerifyIdentity finds the user by email, compares the password and stamps
// the last activity time. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			if b, ok := u.hasher.(timingBurner); ok {
				b.burn(password)
			}
			return nil, ErrInvalidCredentials
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, ErrStoreUnavailable.Wrap(err)
	}

	if !u.hasher.VerifyPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		emitActivity(ctx, u.activitySink, u.logger, ActivityEvent{
			EventType: ActivityEventActivityTrackErr,
			UserID:    user.ID.String(),
			Reason:    reasonFor(ErrStoreUnavailable),
		})
		if u.strictActivity {
			return nil, ErrStoreUnavailable.Wrap(err)
		}
		u.logger.Warn("failed to track successful login", "user_id", user.ID.String(), "error", err)
	}

	return user, nil
}
