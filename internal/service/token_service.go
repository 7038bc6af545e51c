package service

import (
	"errors"
	"fmt"
	"time"

	"food-wallet-service/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTTokenService implements ports.TokenService with HS256 access tokens.
type JWTTokenService struct {
	secret []byte
	expiry time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// TokenOption customises a JWTTokenService.
type TokenOption func(*JWTTokenService)

// WithTokenLeeway tolerates clock skew between instances when checking exp and nbf.
func WithTokenLeeway(d time.Duration) TokenOption {
	return func(s *JWTTokenService) { s.leeway = d }
}

// WithTokenClock replaces time.Now.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(s *JWTTokenService) { s.now = now }
}

func NewJWTTokenService(secret string, expiry time.Duration, issuer string, opts ...TokenOption) *JWTTokenService {
	s := &JWTTokenService{
		secret: []byte(secret),
		expiry: expiry,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type customerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Generate issues a token for the customer. The subject is the user id and
// every token gets its own jti.
func (s *JWTTokenService) Generate(userID uuid.UUID, email string) (string, time.Time, error) {
	issuedAt := s.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.expiry)

	claims := customerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate checks signature, issuer and lifetime and returns the customer behind the token.
func (s *JWTTokenService) Validate(raw string) (*ports.TokenClaims, error) {
	claims := &customerClaims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	if claims.ID == "" {
		return nil, errors.New("token has no jti")
	}

	return &ports.TokenClaims{
		TokenID:   claims.ID,
		UserID:    userID,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
