package repositories

// TokenStore persists the bearer token across process restarts under a single
// well-known key. Absence of a token is equivalent to logged-out.
type TokenStore interface {
	// Load returns the persisted token, or "" when none is stored.
	Load() (string, error)
	Save(token string) error
	Clear() error
}
