// Package commands implements the authclient command line interface.
package commands

import (
	nethttp "net/http"

	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every command
type RootOptions struct {
	ConfigPath string
	Debug      bool

	// transport replaces the network in tests
	transport nethttp.RoundTripper
}

// NewRootCommand assembles the authclient command tree
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "authclient",
		Short: "Call token-authenticated HTTP APIs",
		Long: `authclient sends requests to an API that authenticates with a session token.

The token is kept in a local file, in memory, or in Redis. Before each call the
token's age is checked, and a stale token is renewed through the service's
whoami endpoint. A token the service rejects is removed.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&opts.Debug, "debug", false, "Log every failed call")

	cmd.AddCommand(
		NewSendCommand(opts),
		NewDownloadCommand(opts),
		NewWhoAmICommand(opts),
		NewTokenCommand(opts),
		NewConfigCommand(opts),
		NewVersionCommand(version),
	)
	return cmd
}
