package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin links a Tidal account using the OAuth device flow.
//
// Prints the user code, then polls until the user confirms in their browser
// or the code expires.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	if r.session.IsValid() {
		r.writePlain("✓ Already connected to Tidal\n")
		return nil
	}

	pending, err := r.session.LoginStart(ctx)
	if err != nil {
		return fmt.Errorf("failed to start device login: %w", err)
	}

	link := pending.VerificationURIComplete
	if link == "" {
		link = pending.VerificationURI
	}
	r.writePlain("Visit %s\n", link)
	r.writePlain("and enter the code: %s\n\n", pending.UserCode)
	r.writePlain("Waiting for confirmation...\n")

	interval := time.Duration(pending.Interval) * time.Second
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		err := r.session.LoginCheck(ctx)
		switch {
		case err == nil:
			r.writePlain("✓ Connected to Tidal\n")
			return nil
		case errors.Is(err, shared.ErrAuthPending):
			continue
		case errors.Is(err, shared.ErrAuthExpired):
			return fmt.Errorf("login code expired, run 'tidalsnap auth login' again: %w", err)
		default:
			return fmt.Errorf("login failed: %w", err)
		}
	}
}

// AuthStatus checks the current authentication state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	if r.session.IsValid() {
		r.writePlain("✓ Connected to Tidal\n")
		return nil
	}

	if r.store != nil {
		if pending, found, _ := r.store.PendingAuth(); found {
			r.writePlain("⧗ Login pending: enter code %s at %s\n", pending.UserCode, pending.VerificationURI)
			return nil
		}
	}

	r.writePlain("✗ Not connected. Run 'tidalsnap auth login'\n")
	return nil
}

// AuthLogout discards stored Tidal credentials.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	if err := r.store.ClearTokens(); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	if err := r.store.ClearPendingAuth(); err != nil {
		return fmt.Errorf("failed to clear pending login: %w", err)
	}

	r.writePlain("✓ Logged out\n")
	return nil
}
