package eventtoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DevToken is the sentinel accepted when WithDevToken(true) is set
	DevToken = "DEV"

	// DevEventID is the event the sentinel resolves to
	DevEventID = "dev"

	// DefaultTTL applies when Issue is called without a TTL
	DefaultTTL = 24 * time.Hour
)

// Signer issues and verifies event tokens.
// It is immutable after New and safe for concurrent use.
type Signer struct {
	secretKey  []byte
	defaultTTL time.Duration
	devToken   bool
	now        func() time.Time
}

// New creates a Signer keyed with secret
func New(secret string, opts ...Option) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecretKey
	}

	s := &Signer{
		secretKey:  []byte(secret),
		defaultTTL: DefaultTTL,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Issue mints a token for eventID valid for ttl.
// A zero ttl selects the default TTL.
//
// Example:
//
//	token, err := signer.Issue("wedding2025", 24*time.Hour)
func (s *Signer) Issue(eventID string, ttl time.Duration) (string, error) {
	claims, err := s.IssueClaims(eventID, ttl)
	if err != nil {
		return "", err
	}
	return Encode(claims.EventID, claims.ExpiresAt, claims.Signature), nil
}

// IssueClaims is Issue without the final encoding step
func (s *Signer) IssueClaims(eventID string, ttl time.Duration) (Claims, error) {
	if eventID == "" || strings.Contains(eventID, Delimiter) {
		return Claims{}, ErrInvalidEventID
	}

	if ttl == 0 {
		ttl = s.defaultTTL
	}
	if ttl < time.Second {
		return Claims{}, fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}

	expiresAt := s.now().Unix() + int64(ttl/time.Second)

	return Claims{
		EventID:   eventID,
		ExpiresAt: expiresAt,
		Signature: s.sign(eventID, expiresAt),
	}, nil
}

// Verify reports whether token currently grants upload access and to which event.
// It never panics; every failure collapses to ok == false.
func (s *Signer) Verify(token string) (eventID string, ok bool) {
	claims, err := s.Validate(token)
	if err != nil {
		return "", false
	}
	return claims.EventID, true
}

// Validate is Verify with the failure reason preserved.
// The returned error is one of ErrDecode, ErrExpired or ErrInvalidSignature.
func (s *Signer) Validate(token string) (claims Claims, err error) {
	defer func() {
		if r := recover(); r != nil {
			claims, err = Claims{}, fmt.Errorf("%w: %v", ErrDecode, r)
		}
	}()

	if s.devToken && token == DevToken {
		return Claims{EventID: DevEventID}, nil
	}

	claims, err = Decode(token)
	if err != nil {
		return Claims{}, err
	}

	// Tokens expire exactly at the boundary.
	if claims.ExpiresAt <= s.now().Unix() {
		return Claims{}, ErrExpired
	}

	expected := s.sign(claims.EventID, claims.ExpiresAt)
	if !hmac.Equal([]byte(expected), []byte(claims.Signature)) {
		return Claims{}, ErrInvalidSignature
	}

	return claims, nil
}

// DevTokenEnabled returns true if the "DEV" sentinel is accepted
func (s *Signer) DevTokenEnabled() bool {
	return s.devToken
}

// DefaultTTL returns the TTL used when Issue is called without one
func (s *Signer) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// sign returns the hex HMAC-SHA256 of eventID|expiresAt
func (s *Signer) sign(eventID string, expiresAt int64) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(eventID + Delimiter + strconv.FormatInt(expiresAt, 10)))
	return hex.EncodeToString(h.Sum(nil))
}
