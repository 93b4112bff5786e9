package shared

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Credentials is the JSON credential bundle read at process start and rewritten when tokens refresh.
type Credentials struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type,omitempty"`
	Scope        string    `json:"scope,omitempty"`
	Expiry       time.Time `json:"expiry,omitzero"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"client_secret"`
}

// LoadCredentials reads and validates the credential bundle at path.
//
// Missing files and missing fields are configuration errors: the run cannot start without them.
func LoadCredentials(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: credential file not found at %s, run `radiosync auth login`", ErrMissingCredentials, path)
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCredentials, path, err)
	}

	if err := creds.Validate(); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveCredentials writes the bundle to path with owner-only permissions.
func SaveCredentials(path string, creds *Credentials) error {
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Validate reports every missing required field.
func (c *Credentials) Validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// Token converts the bundle into an [oauth2.Token].
//
// Bundles without an expiry are treated as expired so the first request refreshes them.
func (c *Credentials) Token() *oauth2.Token {
	expiry := c.Expiry
	if expiry.IsZero() {
		expiry = time.Unix(1, 0)
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       expiry,
	}
}

// Update copies a refreshed token into the bundle. The refresh token is kept when the provider omits it.
func (c *Credentials) Update(token *oauth2.Token) {
	if token == nil {
		return
	}
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	if token.TokenType != "" {
		c.TokenType = token.TokenType
	}
	c.Expiry = token.Expiry
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		c.Scope = scope
	}
}
