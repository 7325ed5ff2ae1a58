package oauth2

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// CacheKey identifies the grant a token was issued for.
type CacheKey struct {
	TokenURL string
	ClientID string
	Username string
	Scopes   string
}

// KeyFor returns the cache key of c. Scope order is ignored.
func KeyFor(c *Config) CacheKey {
	scopes := slices.Clone(c.Scopes)
	slices.Sort(scopes)
	return CacheKey{
		TokenURL: c.TokenURL,
		ClientID: c.ClientID,
		Username: c.Username,
		Scopes:   strings.Join(scopes, " "),
	}
}

// TokenCache holds one token per grant. It is safe for concurrent use.
type TokenCache struct {
	mu     sync.Mutex
	tokens map[CacheKey]*Token
}

func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[CacheKey]*Token)}
}

// Get returns the token for key if it is still valid at now.
func (c *TokenCache) Get(key CacheKey, now time.Time) *Token {
	token, valid := c.Lookup(key, now)
	if !valid {
		return nil
	}
	return token
}

// Lookup returns the stored token for key, expired or not, and whether it
// is still valid at now. An expired token is kept for its refresh token.
func (c *TokenCache) Lookup(key CacheKey, now time.Time) (token *Token, valid bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	token = c.tokens[key]
	if token == nil {
		return nil, false
	}
	return token, !token.IsExpired(now)
}

func (c *TokenCache) Set(key CacheKey, token *Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = token
}

func (c *TokenCache) Delete(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
}
