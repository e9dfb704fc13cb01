package photodrop

import (
	"github.com/tendant/photodrop/pkg/eventtoken"
)

// ReasonInvalidToken is the only rejection reason clients ever see.
// Malformed, expired and forged tokens are deliberately indistinguishable.
const ReasonInvalidToken = "invalid or expired token"

// Decision is the outcome of Authorize
type Decision struct {
	Authorized bool
	EventID    string
	Reason     string
}

// Authorizer gates upload requests on a token and resolves the event they write to
type Authorizer struct {
	verifier Verifier
	observe  VerificationObserver
}

// AuthorizerOption configures an Authorizer
type AuthorizerOption func(*Authorizer)

// WithVerificationObserver reports each verification outcome ("ok", "expired", ...)
func WithVerificationObserver(fn VerificationObserver) AuthorizerOption {
	return func(a *Authorizer) {
		a.observe = fn
	}
}

// NewAuthorizer creates an Authorizer backed by verifier
func NewAuthorizer(verifier Verifier, opts ...AuthorizerOption) *Authorizer {
	a := &Authorizer{verifier: verifier}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// validator is implemented by verifiers that can explain a rejection
type validator interface {
	Validate(token string) (eventtoken.Claims, error)
}

// Authorize verifies token and picks the effective event: explicitEventID when
// non-empty, otherwise the event embedded in the token.
func (a *Authorizer) Authorize(token, explicitEventID string) Decision {
	eventID, ok := a.verify(token)
	if !ok {
		return Decision{Reason: ReasonInvalidToken}
	}

	if explicitEventID != "" {
		eventID = explicitEventID
	}
	return Decision{Authorized: true, EventID: eventID}
}

func (a *Authorizer) verify(token string) (string, bool) {
	if a.observe == nil {
		return a.verifier.Verify(token)
	}

	if v, ok := a.verifier.(validator); ok {
		claims, err := v.Validate(token)
		a.observe(eventtoken.Reason(err))
		if err != nil {
			return "", false
		}
		return claims.EventID, true
	}

	eventID, ok := a.verifier.Verify(token)
	if ok {
		a.observe("ok")
	} else {
		a.observe("rejected")
	}
	return eventID, ok
}
