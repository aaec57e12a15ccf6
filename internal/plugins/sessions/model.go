// Package sessions issues and validates login sessions. A session is an
// opaque token whose only state is a key in the key/value store: present
// means valid, absent means never issued or expired. Expiry is left entirely
// to the store's TTL; nothing here renews or tracks it.
package sessions

import "time"

// keyPrefix namespaces session keys in the key/value store.
const keyPrefix = "session:"

// Snapshot is the account data bound to a session at login. It never carries
// the password hash.
type Snapshot struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Salt     string `json:"salt"`
}

// Session is a validated session as seen by downstream handlers.
type Session struct {
	Snapshot

	// Token is the lookup key the session was found under. Not stored in the value.
	Token string `json:"-"`

	IssuedAt time.Time `json:"issued_at"`
}

// storageKey returns the key-value store key for a token.
func storageKey(token string) string {
	return keyPrefix + token
}
