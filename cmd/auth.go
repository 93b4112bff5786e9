package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/desertthunder/radiosync/internal/server"
	"github.com/desertthunder/radiosync/internal/services"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// AuthLogin runs the authorization code flow against a local callback server and writes the credential bundle.
//
// Client credentials come from the flags, their environment variables, or an existing bundle.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	clientID, clientSecret := r.clientCredentials(cmd)
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("%w: --client-id and --client-secret are required", shared.ErrMissingCredentials)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthConfig := services.NewOAuthConfig(clientID, clientSecret, r.config.Credentials.RedirectURI)
	handler := server.NewOAuthHandler(oauthConfig, state, r.httpClient)
	srv, err := server.NewCallbackServer(r.callbackAddr(), handler, r.logger)
	if err != nil {
		return err
	}
	srv.Start()

	authURL := oauthConfig.AuthCodeURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	} else {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		if err := shared.OpenBrowser(authURL); err != nil {
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlain("⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
		}
	}

	timeout := cmd.Duration("timeout")
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)
	result, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	r.credentials = &shared.Credentials{ClientID: clientID, ClientSecret: clientSecret}
	if err := r.saveTokens(result.Token); err != nil {
		return err
	}
	r.logger.Info("credential bundle written", "path", r.config.Credentials.Path)

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("Credentials saved to: %s\n", r.config.Credentials.Path)
	return r.rememberUser(ctx)
}

// rememberUser looks the authorized user up and stores it as catalog.user_id when the config has none.
func (r *Runner) rememberUser(ctx context.Context) error {
	if _, err := r.catalogService(); err != nil {
		return err
	}
	if r.spotify == nil {
		return nil
	}
	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		return err
	}
	r.writePlain("Authorized as: %s (%s)\n", user.DisplayName, user.ID)

	if r.config.Catalog.UserID != "" {
		if r.config.Catalog.UserID != user.ID {
			r.logger.Warn("authorized user differs from catalog.user_id", "user", user.ID, "configured", r.config.Catalog.UserID)
		}
		return nil
	}

	r.config.Catalog.UserID = user.ID
	if _, err := os.Stat(r.configPath); err != nil {
		r.writePlain("Set catalog.user_id = %q in your config\n", user.ID)
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.writePlain("Saved catalog.user_id to %s\n", r.configPath)
	return nil
}

// AuthStatus reports the user the credential bundle is authorized as.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.catalogService(); err != nil {
		return err
	}
	if r.spotify == nil {
		return fmt.Errorf("%w: no Spotify client configured", shared.ErrNotAuthenticated)
	}

	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrRefreshFailed) {
			r.writePlain("✗ Not authenticated, run `radiosync auth login`\n")
		}
		return err
	}

	r.writePlain("✓ Authenticated\n")
	r.writePlain("User: %s (%s)\n", user.DisplayName, user.ID)
	if user.Product != "" {
		r.writePlain("Product: %s\n", user.Product)
	}
	if r.credentials != nil && !r.credentials.Expiry.IsZero() {
		r.writePlain("Token expires: %s\n", r.credentials.Expiry.Local().Format(time.RFC1123))
	}
	if r.config.Catalog.UserID == "" {
		r.writePlain("⚠ catalog.user_id is not set, %s will own synced playlists\n", user.ID)
	}
	return nil
}

// clientCredentials prefers flags and falls back to an existing bundle, which may lack a refresh token.
func (r *Runner) clientCredentials(cmd *cli.Command) (string, string) {
	id, secret := cmd.String("client-id"), cmd.String("client-secret")
	if id != "" && secret != "" {
		return id, secret
	}

	creds, err := shared.LoadCredentials(r.config.Credentials.Path)
	if creds == nil {
		r.logger.Debug("no usable credential bundle", "error", err)
		return id, secret
	}
	if id == "" {
		id = creds.ClientID
	}
	if secret == "" {
		secret = creds.ClientSecret
	}
	return id, secret
}

// callbackAddr binds the host and port of the redirect URI, falling back to the server config.
func (r *Runner) callbackAddr() string {
	if u, err := url.Parse(r.config.Credentials.RedirectURI); err == nil && u.Port() != "" {
		return net.JoinHostPort(u.Hostname(), u.Port())
	}
	return net.JoinHostPort(r.config.Server.Host, fmt.Sprint(r.config.Server.Port))
}
