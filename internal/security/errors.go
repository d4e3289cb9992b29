package security

import (
	"errors"
	"fmt"
)

var ErrMisconfigured = errors.New("security config invalid")

// Hashing failures. ErrPasswordTooLong is caused by the input, every other
// ErrHashing is an internal fault (corrupt record, entropy source failure).
var (
	ErrHashing         = errors.New("password hashing failed")
	ErrPasswordTooLong = fmt.Errorf("%w: password exceeds %d bytes", ErrHashing, maxPasswordBytes)
	ErrMalformedDigest = fmt.Errorf("%w: malformed digest", ErrHashing)
)

// Token failures all match ErrUnauthorized so callers that do not care about
// the reason can collapse them.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrTokenMalformed        = fmt.Errorf("%w: token malformed", ErrUnauthorized)
	ErrTokenSignatureInvalid = fmt.Errorf("%w: token signature invalid", ErrUnauthorized)
	ErrTokenExpired          = fmt.Errorf("%w: token expired", ErrUnauthorized)
)
