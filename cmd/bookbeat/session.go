package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmagar/bookbeat-cli/internal/api"
	"github.com/jmagar/bookbeat-cli/internal/model"
	"github.com/jmagar/bookbeat-cli/internal/store"
	"github.com/jmagar/bookbeat-cli/internal/ui"
)

// errNotSubscribed stops a run the user chose not to continue.
var errNotSubscribed = errors.New("account has no valid subscription")

// openSession restores the stored token, or logs in when there is none or it
// can no longer be refreshed.
func openSession(ctx context.Context, m *api.SessionManager, tokens *store.FileTokenStore, cfg *model.Config, prompter *ui.Prompter, logger *slog.Logger) (*api.Session, error) {
	tok, err := tokens.Load()
	if err != nil {
		logger.Warn("stored token unreadable", "path", tokens.Path(), "error", err)
	}
	if tok != nil {
		sess, err := m.Restore(ctx, *tok)
		if err == nil {
			return sess, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		logger.Warn("stored session could not be restored", "error", err)
		ui.PrintWarning("Stored session expired, logging in again")
	}

	creds, err := credentials(cfg, prompter)
	if err != nil {
		return nil, err
	}
	sess, err := m.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	ui.PrintSuccess("Signed in as " + creds.Username)
	return sess, nil
}

// credentials takes the username and password from config and flags and
// prompts for whatever is missing.
func credentials(cfg *model.Config, prompter *ui.Prompter) (model.Credentials, error) {
	creds := model.Credentials{Username: cfg.Username, Password: cfg.Password}
	var err error
	if creds.Username == "" {
		if creds.Username, err = prompter.Line("Username:"); err != nil {
			return creds, fmt.Errorf("read username: %w", err)
		}
	}
	if creds.Password == "" {
		if creds.Password, err = prompter.Secret("Password:"); err != nil {
			return creds, fmt.Errorf("read password: %w", err)
		}
	}
	if creds.Username == "" || creds.Password == "" {
		return creds, errors.New("username and password are required")
	}
	return creds, nil
}

// checkSubscription asks before continuing on an account without a valid
// subscription.
func checkSubscription(ctx context.Context, catalog *api.Catalog, prompter *ui.Prompter) (*model.User, error) {
	user, err := catalog.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if user.Subscribed() {
		return user, nil
	}
	ui.PrintWarning("This account has no valid subscription; downloads will likely fail.")
	ok, err := prompter.Confirm("Continue anyway?")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotSubscribed
	}
	return user, nil
}
