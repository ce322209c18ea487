package ports

import "github.com/lunark-labs/drip/core"

// Tokenizer converts between session rows and the opaque tokens clients
// hold. The token carries only the session ID and owning address; the row in
// the SessionStore stays authoritative for activity and expiry.
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)

	// TokenToSession returns the session ID and address embedded in a
	// well-formed token. It performs no store lookup.
	TokenToSession(token string) (id string, address string, err error)
}
