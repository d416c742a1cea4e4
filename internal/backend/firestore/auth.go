package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"moviecat/internal/config"
)

// ErrNoRefreshToken is returned by LoadToken for a token that cannot be renewed.
var ErrNoRefreshToken = errors.New("token has no refresh token")

// OAuthConfig reads the desktop client credentials from the config dir.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", config.OAuthClientFile, err)
	}
	oc, err := google.ConfigFromJSON(clientJSON, Scopes()...)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.OAuthClientFile, err)
	}
	return oc, nil
}

// LoadToken reads a stored token. A token without a refresh token is
// returned together with ErrNoRefreshToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if tok.RefreshToken == "" {
		return &tok, ErrNoRefreshToken
	}
	return &tok, nil
}

// SaveToken writes tok to path with mode 0600.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// TokenSource returns an auto-refreshing source for the stored token.
func TokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return nil, err
	}
	tok, err := LoadToken(cfg.TokenPath())
	if err != nil && !errors.Is(err, ErrNoRefreshToken) {
		return nil, err
	}
	return oc.TokenSource(ctx, tok), nil
}

// CheckToken reports whether the stored token can still produce an access
// token, refreshing it if needed.
func CheckToken(ctx context.Context, cfg *config.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	oc, err := OAuthConfig(cfg)
	if err != nil {
		return err
	}
	tok, err := LoadToken(cfg.TokenPath())
	if err != nil {
		return err
	}
	_, err = oc.TokenSource(ctx, tok).Token()
	return err
}
