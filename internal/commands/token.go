package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/authclient/tokenstore"
)

// NewTokenCommand creates the token command group
func NewTokenCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Inspect or change the stored session token",
	}
	cmd.AddCommand(
		newTokenShowCommand(root),
		newTokenSetCommand(root),
		newTokenClearCommand(root),
	)
	return cmd
}

func newTokenShowCommand(root *RootOptions) *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored token and its age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, root, func(s *session, store tokenstore.Store) error {
				token, err := store.Get(cmd.Context())
				if errors.Is(err, tokenstore.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "no token stored")
					return nil
				}
				if err != nil {
					return err
				}
				age, err := store.Age(cmd.Context())
				if err != nil {
					return err
				}

				if !reveal {
					token = maskToken(token)
				}
				state := "fresh"
				if age >= s.cfg.Client.RefreshInterval {
					state = "stale, renewed on next call"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "token: %s\nage:   %s (%s)\n", token, age.Truncate(time.Second), state)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print the full token")
	return cmd
}

func newTokenSetCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <token>",
		Short: "Store a session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, root, func(_ *session, store tokenstore.Store) error {
				if err := store.Set(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token stored")
				return nil
			})
		},
	}
}

func newTokenClearCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, root, func(_ *session, store tokenstore.Store) error {
				if err := store.Remove(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token removed")
				return nil
			})
		},
	}
}

func withStore(cmd *cobra.Command, root *RootOptions, fn func(*session, tokenstore.Store) error) error {
	s, err := openSession(cmd, root)
	if err != nil {
		return err
	}
	defer s.Close()

	store, err := s.requireStore()
	if err != nil {
		return err
	}
	return fn(s, store)
}

// maskToken keeps the first and last four characters of long tokens
func maskToken(token string) string {
	if len(token) <= 12 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
