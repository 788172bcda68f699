package handler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Sign-in lives with the identity provider; this only mints tokens against
// AUTH_SECRET for local development.
func newTokenCmd(appState AppStateFunc) *cobra.Command {
	var (
		uid string
		ttl time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token <email>",
		Short: "Issue a bearer token for local development",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			as := appState()
			if uid == "" {
				owner, claimed, err := as.Owner.Current(cmd.Context())
				if err != nil {
					return err
				}
				uid = owner
				if !claimed {
					uid = uuid.NewString()
				}
			}
			token, err := as.Tokens.Issue(uid, args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&uid, "uid", "", "user id, defaults to the device owner or a random one")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return tokenCmd
}
