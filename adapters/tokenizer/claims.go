package tokenizer

import "github.com/golang-jwt/jwt/v5"

// SessionClaims are the registered claims of a session token. The JWT ID is
// the session row key; the subject is the owning address.
type SessionClaims struct {
	jwt.RegisteredClaims
}
