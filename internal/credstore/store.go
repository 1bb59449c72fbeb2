// Package credstore persists the bearer credential pair across restarts.
// It is the single source of truth for whether a principal is authenticated.
package credstore

// Pair holds the credentials issued by the identity API. Both values are
// opaque to the client.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store describes credential persistence. Implementations never surface
// storage failures to callers: a broken backing store degrades to in-memory
// operation for the lifetime of the process.
type Store interface {
	// Read returns the current pair, or nil when no credentials are stored.
	Read() *Pair
	// Write persists both tokens. Callers never observe a state with only
	// one token set.
	Write(pair Pair)
	// Clear removes both tokens.
	Clear()
}
