package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/authclient/httpclient"
)

// NewWhoAmICommand creates the whoami command. It asks the service which
// session the current token belongs to and, with --save, stores the answer.
func NewWhoAmICommand(root *RootOptions) *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the session the current token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, root)
			if err != nil {
				return err
			}
			defer s.Close()

			resp, err := s.client.Send(cmd.Context(), &httpclient.Descriptor{
				URL:          s.cfg.Client.WhoAmIPath,
				RefreshToken: httpclient.Bool(false),
			})
			if err != nil {
				return explain(err)
			}

			if save {
				store, err := s.requireStore()
				if err != nil {
					return err
				}
				token, ok := resp.Body.(string)
				token = strings.TrimSpace(token)
				if !ok || token == "" {
					return fmt.Errorf("whoami did not return a token")
				}
				if err := store.Set(cmd.Context(), token); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
			}
			return printBody(cmd.OutOrStdout(), resp.Body)
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "Store the returned token as the current session")
	return cmd
}
