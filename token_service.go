package pileapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is how long an issued token stays valid
const DefaultTokenTTL = 30 * 24 * time.Hour

// DefaultKeyID is the kid header stamped on issued tokens
const DefaultKeyID = "pileapi"

// TokenService issues and validates HS256 tokens. The signing key is
// injected once and never read from the environment.
type TokenService struct {
	signingKey []byte
	keyID      string
	ttl        time.Duration
	keyFunc    jwt.Keyfunc
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, keyID string, ttl time.Duration, logger Logger) (*TokenService, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("token service: signing key must not be empty")
	}

	if keyID == "" {
		keyID = DefaultKeyID
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	alg := jwt.SigningMethodHS256.Alg()
	givenKeys := map[string]keyfunc.GivenKey{
		keyID: keyfunc.NewGivenCustom(signingKey, keyfunc.GivenKeyOptions{
			Algorithm: alg,
		}),
	}

	return &TokenService{
		signingKey: signingKey,
		keyID:      keyID,
		ttl:        ttl,
		keyFunc:    keyfunc.NewGiven(givenKeys).Keyfunc,
		now:        time.Now,
		logger:     normalizeLogger(logger),
	}, nil
}

// NewTokenServiceFromConfig builds a TokenService from Config getters
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenService, error) {
	if m := cfg.GetSigningMethod(); m != "" && m != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("token service: unsupported signing method %q", m)
	}
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetKeyID(), cfg.GetTokenExpiration(), logger)
}

// WithNow overrides the clock, used for issuing and for expiry checks
func (ts *TokenService) WithNow(now func() time.Time) *TokenService {
	if now != nil {
		ts.now = now
	}
	return ts
}

// TTL returns the configured token lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Generate signs a token for user. The claim set carries the user id as
// "_id", the email as subject and expires after the configured TTL.
func (ts *TokenService) Generate(user *User) (string, error) {
	if user == nil {
		return "", errors.New("token service: user must not be nil")
	}

	now := ts.now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
		UID: user.ID.String(),
	}

	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key
func (ts *TokenService) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", errors.New("token service: claims must not be nil")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", WrapError(err, CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a token string. Every failure maps to
// ErrTokenInvalid except expiry, which maps to ErrTokenExpired.
func (ts *TokenService) Validate(raw string) (*JWTClaims, error) {
	if raw == "" {
		return nil, ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, ts.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired.Wrap(err)
		}
		ts.logger.Debug("token rejected", "error", err)
		return nil, ErrTokenInvalid.Wrap(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.UID == "" {
		return nil, ErrTokenInvalid.Wrap(errors.New("missing _id claim"))
	}

	return claims, nil
}
