package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingSubject   = errors.New("missing subject in claims")
)

// Claims are the access token claims issued by the auth provider
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Verifier checks HS256 access tokens signed with the provider's secret
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier creates a verifier. An empty issuer skips the iss check.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Verify parses and validates tokenString and returns its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrInvalidClaims
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidClaims
	}

	return claims, nil
}

// Sign issues a token for subject. Local tooling and tests use it; the
// service itself never issues sessions.
func (v *Verifier) Sign(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Issuer:    v.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
