package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDClaim is the claim carrying the account id in login tokens.
const UserIDClaim = "userId"

// TokenIssuer signs and verifies bearer session tokens.
type TokenIssuer interface {
	// IssueForUser signs a token carrying the account id.
	IssueForUser(userID string) (string, error)
	// Sign signs arbitrary claims; exp is always overwritten.
	Sign(claims map[string]any) (string, error)
	// Verify returns the decoded claims of a valid, unexpired token.
	Verify(ctx context.Context, token string) (jwt.MapClaims, error)
	// Revoke rejects the token in future Verify calls until it expires.
	Revoke(ctx context.Context, token string) error
}

// RevocationList tracks logged-out tokens until they would have expired.
type RevocationList interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// SessionIssuer is an HS256 TokenIssuer with a fixed validity window.
type SessionIssuer struct {
	secret  []byte
	expiry  time.Duration
	revoked RevocationList
	now     func() time.Time
}

var _ TokenIssuer = (*SessionIssuer)(nil)

// NewSessionIssuer creates an issuer. revoked may be nil, in which case
// logout is purely client side.
func NewSessionIssuer(secret string, expiry time.Duration, revoked RevocationList) *SessionIssuer {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &SessionIssuer{
		secret:  []byte(secret),
		expiry:  expiry,
		revoked: revoked,
		now:     time.Now,
	}
}

func (s *SessionIssuer) IssueForUser(userID string) (string, error) {
	return s.Sign(map[string]any{UserIDClaim: userID})
}

func (s *SessionIssuer) Sign(claims map[string]any) (string, error) {
	now := s.now()
	mapClaims := jwt.MapClaims{}
	for k, v := range claims {
		mapClaims[k] = v
	}
	mapClaims["iat"] = now.Unix()
	mapClaims["exp"] = now.Add(s.expiry).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *SessionIssuer) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	token, err := jwt.Parse(tokenString, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, tokenString)
		if err != nil {
			return nil, fmt.Errorf("failed to check revocation: %w", err)
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	return claims, nil
}

// Revoke puts a token signed by this issuer on the revocation list for the
// remainder of its lifetime. Tokens that fail signature verification are
// refused with ErrInvalidToken and never stored. Without a revocation list
// it is a no-op.
func (s *SessionIssuer) Revoke(ctx context.Context, tokenString string) error {
	if s.revoked == nil || tokenString == "" {
		return nil
	}

	exp, err := s.signedExpiry(tokenString)
	if err != nil {
		return err
	}

	ttl := exp.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, tokenString, ttl)
}

// signedExpiry verifies the signature but skips time-based claim checks, so
// an already expired token still yields its expiry.
func (s *SessionIssuer) signedExpiry(tokenString string) (time.Time, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, ErrInvalidToken
	}
	return exp.Time, nil
}

func (s *SessionIssuer) key(*jwt.Token) (interface{}, error) {
	return s.secret, nil
}

// UserID extracts the account id claim, if present.
func UserID(claims jwt.MapClaims) string {
	if claims == nil {
		return ""
	}
	if v, ok := claims[UserIDClaim].(string); ok {
		return v
	}
	return ""
}
