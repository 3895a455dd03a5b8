// Package ads talks to the advertising platform's REST API: click-conversion uploads and
// search campaign management.
package ads

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"matching-platform/internal/common/config"
)

// Scope grants access to the advertising API.
const Scope = "https://www.googleapis.com/auth/adwords"

// DefaultRedirectURL is used when the OAuth client has no redirect URI configured.
const DefaultRedirectURL = "http://localhost:8080/callback"

// OAuthConfig builds the OAuth client for the given credentials.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if redirectURL == "" {
		redirectURL = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{Scope},
		RedirectURL:  redirectURL,
	}
}

// OAuthConfigFromFile reads a downloaded client-secrets JSON file. The file's first redirect
// URI is kept unless it has none.
func OAuthConfigFromFile(path string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets: %w", err)
	}
	conf, err := google.ConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	if conf.RedirectURL == "" {
		conf.RedirectURL = DefaultRedirectURL
	}
	return conf, nil
}

// ConsentURL returns the URL that asks for offline access. Forcing the consent prompt makes
// the platform issue a refresh token on every run.
func ConsentURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// ExchangeRedirect extracts the authorization code from the full redirect URL the user was
// sent to and exchanges it for a token.
func ExchangeRedirect(ctx context.Context, conf *oauth2.Config, redirect, state string) (*oauth2.Token, error) {
	code, err := codeFromRedirect(redirect, state)
	if err != nil {
		return nil, err
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	if tok.RefreshToken == "" {
		return nil, errors.New("no refresh token returned; revoke the app's access and retry")
	}
	return tok, nil
}

func codeFromRedirect(redirect, state string) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", fmt.Errorf("invalid redirect url: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	if state != "" && q.Get("state") != state {
		return "", errors.New("invalid state parameter")
	}
	code := q.Get("code")
	if code == "" {
		return "", errors.New("no code in redirect url")
	}
	return code, nil
}

// TokenSource returns an auto-refreshing token source from the configured refresh token.
func TokenSource(ctx context.Context, cfg config.GoogleAdsConfig) oauth2.TokenSource {
	conf := OAuthConfig(cfg.ClientID, cfg.ClientSecret, "")
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
}
