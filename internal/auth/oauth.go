package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2/clientcredentials"
)

// OAuth2Config configures the client_credentials grant.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// OAuth2Authenticator obtains Bearer tokens through the OAuth2
// client_credentials grant and renews them when the server rejects one.
type OAuth2Authenticator struct {
	config *clientcredentials.Config
	store  *TokenStore
	mu     sync.Mutex
}

// NewOAuth2Authenticator creates a client_credentials authenticator.
func NewOAuth2Authenticator(config *OAuth2Config) *OAuth2Authenticator {
	return &OAuth2Authenticator{
		config: &clientcredentials.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			TokenURL:     config.TokenURL,
			Scopes:       config.Scopes,
		},
		store: NewTokenStore(),
	}
}

// Apply sets a Bearer token, fetching one first when none is held or the
// held one is about to expire.
func (a *OAuth2Authenticator) Apply(ctx context.Context, req *http.Request) error {
	token := a.store.Get()
	if !token.Valid() {
		err := a.fetch(ctx)
		if err != nil {
			return err
		}

		token = a.store.Get()
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	return nil
}

// Refresh discards the held token and fetches a fresh one.
func (a *OAuth2Authenticator) Refresh(ctx context.Context) error {
	a.store.Clear()

	return a.fetch(ctx)
}

func (a *OAuth2Authenticator) fetch(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Another caller may have fetched while we waited for the lock.
	if a.store.Get().Valid() {
		return nil
	}

	token, err := a.config.Token(ctx)
	if err != nil {
		return fmt.Errorf("fetching OAuth2 token: %w", err)
	}

	a.store.Set(&Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.TokenType,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	})

	return nil
}
