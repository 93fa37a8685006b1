package auth

import "errors"

// Failure taxonomy for the token lifecycle and authorization engine. Handlers
// collapse every authentication-kind error into a single external
// "unauthorized" response; the distinct sentinels exist for internal mapping,
// logging and tests.
var (
	ErrInvalidCredential     = errors.New("invalid credential")
	ErrMalformedToken        = errors.New("malformed token")
	ErrExpiredToken          = errors.New("token expired")
	ErrInvalidSignature      = errors.New("invalid token signature")
	ErrWrongTokenType        = errors.New("wrong token type")
	ErrTokenRevokedOrExpired = errors.New("token revoked or expired")
	ErrAccountInactive       = errors.New("account inactive")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrStoreUnavailable      = errors.New("session store unavailable")
)

// IsAuthenticationError reports whether err belongs to the class that must
// surface uniformly as 401 regardless of internal kind.
func IsAuthenticationError(err error) bool {
	for _, sentinel := range []error{
		ErrInvalidCredential,
		ErrMalformedToken,
		ErrExpiredToken,
		ErrInvalidSignature,
		ErrWrongTokenType,
		ErrTokenRevokedOrExpired,
		ErrAccountInactive,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
