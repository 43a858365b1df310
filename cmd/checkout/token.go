package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"webpay-checkout/internal/infra/api"
)

// newTokenCmd mints a bearer token for local testing of /checkout/create.
func newTokenCmd(flags *rootFlags) *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user is required")
			}
			cfg, _, err := flags.load()
			if err != nil {
				return err
			}
			tok, err := api.NewAuthenticator(cfg.Auth.JWTSecret).Mint(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id to put in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
