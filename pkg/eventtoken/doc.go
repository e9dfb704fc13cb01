// Package eventtoken issues and verifies stateless upload tokens for photo events.
//
// A token is a capability: it names the event it grants access to and the instant it
// stops being valid, and carries an HMAC-SHA256 signature over both. Nothing is stored
// server-side; a token is valid as long as its signature matches the process secret and
// its expiry lies in the future.
//
// # Format
//
//	base64url( eventID | expiresAt | hex(HMAC-SHA256(secret, eventID|expiresAt)) )
//
// The base64url form carries no padding, so tokens can be placed in a query string
// without escaping.
//
// # Basic Usage
//
//	signer, err := eventtoken.New("your-secret-key")
//	token, err := signer.Issue("wedding2025", 24*time.Hour)
//
//	eventID, ok := signer.Verify(token)
//	if !ok {
//	    // malformed, expired or forged: callers cannot tell which
//	}
//
// # Development Token
//
// WithDevToken(true) makes the literal token "DEV" verify as event "dev" without any
// signature check. Never enable it in production.
//
// # Rotation
//
// Tokens are bound to the secret they were signed with. Replacing the secret
// invalidates every outstanding token at once.
package eventtoken
