package pileapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilecalc/pile-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	ctx := context.Background()
	tokens := newTokenService(t, "test-signing-key")

	t.Run("success issues a token for the user", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &recordingSink{}
		user := testUser()

		provider.On("VerifyIdentity", ctx, "john@x.com", "secret123").Return(user, nil).Once()

		auther := pileapi.NewAuthenticator(provider, new(MockPrincipalStore), tokens).
			WithLogger(nopLogger{}).
			WithActivitySink(sink)

		res, err := auther.Login(ctx, "john@x.com", "secret123")
		require.NoError(t, err)
		require.NotNil(t, res)
		assert.Same(t, user, res.User)

		claims, err := tokens.Validate(res.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID.String(), claims.UserID())
		assert.Equal(t, user.Email, claims.Subject())

		assert.Equal(t, []pileapi.ActivityEventType{pileapi.ActivityEventLoginSuccess}, sink.types())
	})

	t.Run("failure returns no result", func(t *testing.T) {
		provider := new(MockIdentityProvider)
		sink := &recordingSink{}

		provider.On("VerifyIdentity", ctx, "john@x.com", "nope").Return(nil, pileapi.ErrInvalidCredentials).Once()

		auther := pileapi.NewAuthenticator(provider, new(MockPrincipalStore), tokens).
			WithLogger(nopLogger{}).
			WithActivitySink(sink)

		res, err := auther.Login(ctx, "john@x.com", "nope")
		assert.Nil(t, res)
		assert.ErrorIs(t, err, pileapi.ErrInvalidCredentials)

		require.Len(t, sink.events, 1)
		assert.Equal(t, pileapi.ActivityEventLoginFailure, sink.events[0].EventType)
		assert.Equal(t, pileapi.TextCodeInvalidCredentials, sink.events[0].Reason)
	})
}

func TestPrincipalFromToken(t *testing.T) {
	ctx := context.Background()
	tokens := newTokenService(t, "test-signing-key")
	user := testUser()

	token, err := tokens.Generate(user)
	require.NoError(t, err)

	tests := []struct {
		name      string
		token     string
		setup     func(store *MockPrincipalStore)
		wantErr   error
		wantUser  bool
		wantEvent pileapi.ActivityEventType
	}{
		{
			name:  "valid token resolves the user",
			token: token,
			setup: func(store *MockPrincipalStore) {
				store.On("GetByID", ctx, user.ID.String()).Return(user, nil).Once()
			},
			wantUser: true,
		},
		{
			name:  "deleted user fails closed",
			token: token,
			setup: func(store *MockPrincipalStore) {
				store.On("GetByID", ctx, user.ID.String()).Return(nil, pileapi.ErrRecordNotFound).Once()
			},
			wantErr:   pileapi.ErrPrincipalNotFound,
			wantEvent: pileapi.ActivityEventTokenRejected,
		},
		{
			name:  "store failure is not a pass",
			token: token,
			setup: func(store *MockPrincipalStore) {
				store.On("GetByID", ctx, user.ID.String()).Return(nil, errors.New("timeout")).Once()
			},
			wantErr: pileapi.ErrStoreUnavailable,
		},
		{
			name:      "bad token never touches the store",
			token:     token + "x",
			setup:     func(store *MockPrincipalStore) {},
			wantErr:   pileapi.ErrTokenInvalid,
			wantEvent: pileapi.ActivityEventTokenRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockPrincipalStore)
			sink := &recordingSink{}
			tt.setup(store)

			auther := pileapi.NewAuthenticator(new(MockIdentityProvider), store, tokens).
				WithLogger(nopLogger{}).
				WithActivitySink(sink)

			got, err := auther.PrincipalFromToken(ctx, tt.token)

			if tt.wantUser {
				require.NoError(t, err)
				assert.Equal(t, user.ID, got.ID)
			} else {
				assert.Nil(t, got)
				assert.ErrorIs(t, err, tt.wantErr)
			}

			if tt.wantEvent != "" {
				assert.Contains(t, sink.types(), tt.wantEvent)
			}

			if tt.wantErr == pileapi.ErrTokenInvalid {
				store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
			}
			store.AssertExpectations(t)
		})
	}
}

func TestPrincipalFromTokenExpired(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	issuer := newTokenService(t, "k").WithNow(func() time.Time {
		return time.Now().Add(-31 * 24 * time.Hour)
	})
	token, err := issuer.Generate(user)
	require.NoError(t, err)

	store := new(MockPrincipalStore)
	auther := pileapi.NewAuthenticator(new(MockIdentityProvider), store, newTokenService(t, "k"))

	got, err := auther.PrincipalFromToken(ctx, token)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, pileapi.ErrTokenExpired)
	assert.Equal(t, 401, pileapi.StatusCode(err))
	store.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestPrincipalFromTokenIssuedBeforeAccount(t *testing.T) {
	ctx := context.Background()
	created := time.Now().Add(-time.Minute)

	user := testUser()
	user.CreatedAt = created

	issuer := newTokenService(t, "k").WithNow(func() time.Time { return created.Add(-time.Hour) })
	staleToken, err := issuer.Generate(user)
	require.NoError(t, err)

	sameSecond := newTokenService(t, "k").WithNow(func() time.Time { return created })
	freshToken, err := sameSecond.Generate(user)
	require.NoError(t, err)

	store := new(MockPrincipalStore)
	store.On("GetByID", ctx, user.ID.String()).Return(user, nil)
	sink := &recordingSink{}

	auther := pileapi.NewAuthenticator(new(MockIdentityProvider), store, newTokenService(t, "k")).
		WithLogger(nopLogger{}).
		WithActivitySink(sink)

	got, err := auther.PrincipalFromToken(ctx, staleToken)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, pileapi.ErrPrincipalNotFound)
	assert.Equal(t, []pileapi.ActivityEventType{pileapi.ActivityEventTokenRejected}, sink.types())

	got, err = auther.PrincipalFromToken(ctx, freshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}
