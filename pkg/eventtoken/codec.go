package eventtoken

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Delimiter separates the token fields before encoding
const Delimiter = "|"

// Claims is the decoded content of a token
type Claims struct {
	EventID   string
	ExpiresAt int64 // Unix seconds
	Signature string
}

// Token returns the encoded form of the claims
func (c Claims) Token() string {
	return Encode(c.EventID, c.ExpiresAt, c.Signature)
}

// Expiry returns ExpiresAt as a time
func (c Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// Encode joins the three fields with Delimiter and encodes them as unpadded base64url
func Encode(eventID string, expiresAt int64, signature string) string {
	raw := eventID + Delimiter + strconv.FormatInt(expiresAt, 10) + Delimiter + signature
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode reverses Encode. Trailing padding is tolerated.
func Decode(token string) (Claims, error) {
	var claims Claims

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	if err != nil {
		return claims, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	parts := strings.Split(string(raw), Delimiter)
	if len(parts) != 3 {
		return claims, fmt.Errorf("%w: expected 3 fields, got %d", ErrDecode, len(parts))
	}
	for _, p := range parts {
		if p == "" {
			return claims, fmt.Errorf("%w: empty field", ErrDecode)
		}
	}

	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return claims, fmt.Errorf("%w: invalid expiry: %v", ErrDecode, err)
	}
	// The MAC covers the canonical form; "0100" or "+100" would otherwise alias "100".
	if strconv.FormatInt(expiresAt, 10) != parts[1] {
		return claims, fmt.Errorf("%w: non-canonical expiry", ErrDecode)
	}

	claims.EventID = parts[0]
	claims.ExpiresAt = expiresAt
	claims.Signature = parts[2]
	return claims, nil
}
