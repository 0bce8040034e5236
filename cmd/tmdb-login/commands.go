package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goTMDB "github.com/MrEthical07/goTMDB"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errLoginFailed = errors.New("login failed")

func newLoginCmd(a *app) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the TMDB login handshake and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, b, logger, err := a.newEngine(ctx)
			if err != nil {
				return err
			}
			defer b.Close()
			defer engine.Close()

			presenter := newTerminalPresenter(a.in, a.out, username)
			res, err := goTMDB.NewController(engine, presenter).Submit(ctx)
			if err != nil {
				logger.Debug("login command failed", zap.Error(err))
				return errLoginFailed
			}

			if err := a.saveHandle(res.Session.Handle); err != nil {
				return err
			}
			if res.Ticket != "" {
				fmt.Fprintf(a.out, "Ticket: %s\n", res.Ticket)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "TMDB username; prompted when empty")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	var handle string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke the remote session and delete the stored one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.resolveHandle(handle)
			if err != nil {
				return err
			}

			engine, b, _, err := a.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			defer engine.Close()

			err = engine.Logout(cmd.Context(), h)
			switch {
			case err == nil:
				fmt.Fprintln(a.out, "Logged out.")
			case errors.Is(err, goTMDB.ErrSessionNotFound):
				fmt.Fprintln(a.out, "No stored session.")
			case remoteFailure(err):
				fmt.Fprintln(a.out, "Remote revoke failed; local session removed.")
			default:
				return err
			}
			a.removeHandle()
			return nil
		},
	}
	cmd.Flags().StringVar(&handle, "handle", "", "Session handle; read from --handle-file when empty")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	var handle string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := a.resolveHandle(handle)
			if err != nil {
				return err
			}

			engine, b, _, err := a.newEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()
			defer engine.Close()

			sess, err := engine.SessionByHandle(cmd.Context(), h)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s (account %d), expires %s\n",
				sess.Username, sess.UserID, time.Unix(sess.ExpiresAt, 0).UTC().Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&handle, "handle", "", "Session handle; read from --handle-file when empty")
	return cmd
}

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions from the Postgres store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.v.GetString("store") != "postgres" {
				return errors.New("purge needs --store postgres; redis expires sessions on its own")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), a.connectTimeout())
			defer cancel()

			logger, err := a.newLogger()
			if err != nil {
				return err
			}
			b, err := a.openBackend(ctx, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			n, err := b.postgres.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Purged %d expired sessions.\n", n)
			return nil
		},
	}
}

func (a *app) handleFile() string {
	return a.v.GetString("handle_file")
}

func (a *app) saveHandle(handle string) error {
	path := a.handleFile()
	if path == "" {
		fmt.Fprintf(a.out, "Handle: %s\n", handle)
		return nil
	}
	if err := os.WriteFile(path, []byte(handle+"\n"), 0o600); err != nil {
		return fmt.Errorf("write handle file: %w", err)
	}
	return nil
}

func (a *app) resolveHandle(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	path := a.handleFile()
	if path == "" {
		return "", errors.New("no handle: pass --handle or --handle-file")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errors.New("not logged in")
		}
		return "", fmt.Errorf("read handle file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (a *app) removeHandle() {
	if path := a.handleFile(); path != "" {
		_ = os.Remove(path)
	}
}

// remoteFailure reports whether err came from the TMDB call rather than the
// local store.
func remoteFailure(err error) bool {
	var (
		transportErr *goTMDB.TransportError
		statusErr    *goTMDB.HTTPStatusError
		parseErr     *goTMDB.JSONParseError
		apiErr       *goTMDB.RemoteAPIError
		missingErr   *goTMDB.MissingFieldError
	)
	return errors.As(err, &transportErr) ||
		errors.As(err, &statusErr) ||
		errors.As(err, &parseErr) ||
		errors.As(err, &apiErr) ||
		errors.As(err, &missingErr) ||
		errors.Is(err, goTMDB.ErrEmptyBody)
}
