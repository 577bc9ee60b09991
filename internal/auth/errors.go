package auth

import "errors"

var (
	// ErrPINMismatch indicates the supplied PIN does not match the stored hash.
	ErrPINMismatch = errors.New("pin does not match")

	// ErrMalformedHash indicates the stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed pin hash")

	// ErrInvalidToken indicates the token format is invalid or signature doesn't match
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken indicates the token has expired
	ErrExpiredToken = errors.New("session token has expired")

	// ErrRevokedToken indicates the token was logged out
	ErrRevokedToken = errors.New("session token has been revoked")

	// ErrMissingToken indicates a token was expected but not provided
	ErrMissingToken = errors.New("session token is missing")
)
