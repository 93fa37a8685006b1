package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/workspace-service/internal/domain"
)

// DefaultLeeway is the clock-skew tolerance applied to expiry checks only.
// Signature validity never gets leeway.
const DefaultLeeway = 30 * time.Second

// Claims describes the signed JWT payload. The typ claim tags access vs
// refresh tokens so one can never be accepted where the other is expected.
type Claims struct {
	TokenType domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager issues and decodes signed, expiring tokens. Signing always
// uses the provider's newest key; decoding accepts any key still in the ring.
type TokenManager struct {
	keys   KeyProvider
	clock  Clock
	leeway time.Duration
}

// NewTokenManager builds a codec around the given key provider.
func NewTokenManager(keys KeyProvider, clock Clock, leeway time.Duration) *TokenManager {
	if clock == nil {
		clock = SystemClock()
	}
	if leeway < 0 {
		leeway = 0
	}
	return &TokenManager{keys: keys, clock: clock, leeway: leeway}
}

// Issue signs a token for the subject with a fresh random token id.
func (tm *TokenManager) Issue(subjectID string, tokenType domain.TokenType, ttl time.Duration) (string, *Claims, error) {
	if ttl <= 0 {
		return "", nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	now := tm.clock.Now()
	claims := &Claims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signingKey := tm.keys.SigningKey()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = signingKey.ID

	signed, err := token.SignedString(signingKey.Secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// Decode verifies signature, expiry and type tag, and returns the claims.
// Errors are classified as ErrMalformedToken, ErrInvalidSignature,
// ErrExpiredToken or ErrWrongTokenType.
func (tm *TokenManager) Decode(tokenStr string, expected domain.TokenType) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(tm.leeway),
		jwt.WithTimeFunc(tm.clock.Now),
	)

	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		secret, ok := tm.keys.VerificationKeys()[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if claims.TokenType != expected {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	default:
		return ErrMalformedToken
	}
}

// HashToken returns the one-way hash under which a raw refresh token is
// stored and looked up. The raw string itself is never persisted.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
