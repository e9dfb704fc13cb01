package eventtoken

import "errors"

var (
	// ErrNoSecretKey is returned when a Signer is built without a secret
	ErrNoSecretKey = errors.New("eventtoken: no secret key configured")

	// ErrInvalidEventID is returned when issuing for an empty event ID or one containing the delimiter
	ErrInvalidEventID = errors.New("eventtoken: invalid event id")

	// ErrInvalidTTL is returned when issuing with a negative or sub-second TTL
	ErrInvalidTTL = errors.New("eventtoken: invalid ttl")

	// ErrDecode is returned when a token is not valid base64url or does not hold three fields
	ErrDecode = errors.New("eventtoken: malformed token")

	// ErrExpired is returned when the token expiry is not in the future
	ErrExpired = errors.New("eventtoken: token has expired")

	// ErrInvalidSignature is returned when the signature does not match
	ErrInvalidSignature = errors.New("eventtoken: invalid signature")
)

// IsRejection returns true if the error is one of the verification failures
func IsRejection(err error) bool {
	return errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrInvalidSignature)
}

// Reason returns a short label for a verification failure, suitable for metrics
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrDecode):
		return "malformed"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "bad_signature"
	default:
		return "error"
	}
}
