// Package oauth2 fetches OAuth2 access tokens so requests can carry a
// bearer Authorization header.
package oauth2

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/httpdebug/packages/http"
	"github.com/tidwall/gjson"
)

// GrantType represents the OAuth2 grant type
type GrantType string

const (
	// ClientCredentials is the client_credentials grant type
	ClientCredentials GrantType = "client_credentials"
	// Password is the password (resource owner) grant type
	Password GrantType = "password"
	// RefreshToken is the refresh_token grant type
	RefreshToken GrantType = "refresh_token"
)

// expiryMargin treats tokens as expired slightly early to absorb clock skew.
const expiryMargin = 30 * time.Second

// Config holds OAuth2 configuration
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Username     string // For password grant
	Password     string // For password grant
	GrantType    GrantType
}

// Token represents an OAuth2 access token
type Token struct {
	AccessToken  string
	TokenType    string
	ExpiresIn    int
	RefreshToken string
	Scope        string
	ExpiresAt    time.Time
}

// IsExpired checks if the token is expired at now.
func (t *Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(expiryMargin).After(t.ExpiresAt)
}

// Header returns the Authorization header value for the token.
func (t *Token) Header() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// Provider handles OAuth2 token acquisition
type Provider struct {
	config    *Config
	exchanger *http.Exchanger
	cache     *TokenCache
	timeout   time.Duration
	now       func() time.Time
}

type ProviderOption func(*Provider)

// WithExchanger sends token requests through ex.
func WithExchanger(ex *http.Exchanger) ProviderOption {
	return func(p *Provider) {
		p.exchanger = ex
	}
}

func WithCache(c *TokenCache) ProviderOption {
	return func(p *Provider) {
		p.cache = c
	}
}

func WithTimeout(d time.Duration) ProviderOption {
	return func(p *Provider) {
		p.timeout = d
	}
}

// NewProvider creates a new OAuth2 provider
func NewProvider(config *Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config:  config,
		timeout: 30 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.exchanger == nil {
		p.exchanger = http.NewExchanger()
	}
	if p.cache == nil {
		p.cache = NewTokenCache()
	}
	return p
}

// Token returns a cached token while it is valid, refreshing or fetching
// a new one otherwise.
func (p *Provider) Token(ctx context.Context) (*Token, error) {
	key := KeyFor(p.config)
	cached, valid := p.cache.Lookup(key, p.now())
	if valid {
		return cached, nil
	}

	if cached != nil && cached.RefreshToken != "" {
		token, err := p.Refresh(ctx, cached.RefreshToken)
		if err == nil {
			p.cache.Set(key, token)
			return token, nil
		}
		p.cache.Delete(key)
	}

	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, token)
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (p *Provider) Invalidate() {
	p.cache.Delete(KeyFor(p.config))
}

func (p *Provider) fetchToken(ctx context.Context) (*Token, error) {
	form := http.Params{}
	switch p.config.GrantType {
	case Password:
		form.Set("grant_type", string(Password))
		form.Set("username", p.config.Username)
		form.Set("password", p.config.Password)
	default:
		form.Set("grant_type", string(ClientCredentials))
	}
	if len(p.config.Scopes) > 0 {
		form.Set("scope", strings.Join(p.config.Scopes, " "))
	}
	return p.doTokenRequest(ctx, form)
}

// Refresh exchanges a refresh token for a new access token.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	form := http.Params{}
	form.Set("grant_type", string(RefreshToken))
	form.Set("refresh_token", refreshToken)
	return p.doTokenRequest(ctx, form)
}

func (p *Provider) doTokenRequest(ctx context.Context, form http.Params) (*Token, error) {
	req := http.NewRequest("POST", p.config.TokenURL).
		SetParams(form).
		SetHeader("Accept", "application/json").
		SetTimeout(p.timeout)
	if p.config.ClientID != "" && p.config.ClientSecret != "" {
		req.SetBasicAuth(p.config.ClientID, p.config.ClientSecret)
	}

	res := p.exchanger.Execute(ctx, req)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}

	body := res.Text()
	if code := res.StatusCode(); code != 200 {
		if e := gjson.Get(body, "error"); e.Exists() {
			return nil, fmt.Errorf("token request failed: %s - %s", e.String(), gjson.Get(body, "error_description").String())
		}
		return nil, fmt.Errorf("token request failed with status %d: %s", code, body)
	}
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("failed to parse token response: not JSON")
	}

	fields := gjson.GetMany(body, "access_token", "token_type", "expires_in", "refresh_token", "scope")
	token := &Token{
		AccessToken:  fields[0].String(),
		TokenType:    fields[1].String(),
		ExpiresIn:    int(fields[2].Int()),
		RefreshToken: fields[3].String(),
		Scope:        fields[4].String(),
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("failed to parse token response: missing access_token")
	}
	if token.ExpiresIn > 0 {
		token.ExpiresAt = p.now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return token, nil
}

// ParseArgs parses a space separated grant description:
//
//	client_credentials tokenUrl clientId clientSecret [scope1,scope2]
//	password tokenUrl clientId clientSecret username password [scope1,scope2]
func ParseArgs(s string) (*Config, error) {
	params := strings.Fields(s)
	if len(params) < 4 {
		return nil, fmt.Errorf("oauth2 auth requires at least: grant_type tokenUrl clientId clientSecret")
	}

	config := &Config{
		GrantType:    GrantType(params[0]),
		TokenURL:     params[1],
		ClientID:     params[2],
		ClientSecret: params[3],
	}

	switch config.GrantType {
	case ClientCredentials:
		if len(params) > 4 {
			config.Scopes = strings.Split(params[4], ",")
		}
	case Password:
		if len(params) < 6 {
			return nil, fmt.Errorf("oauth2 password grant requires: tokenUrl clientId clientSecret username password [scopes]")
		}
		config.Username = params[4]
		config.Password = params[5]
		if len(params) > 6 {
			config.Scopes = strings.Split(params[6], ",")
		}
	default:
		return nil, fmt.Errorf("unsupported OAuth2 grant type: %s", config.GrantType)
	}

	return config, nil
}
