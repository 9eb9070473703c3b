package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
)

var (
	tokenScope string
	tokenTTL   time.Duration
)

// tokenCmd issues API bearer tokens
var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Issue an API bearer token",
	Long: `Signs a bearer token with the configured JWT secret.

Example:
  fmsctl token dispatch-bot --scope uplink --ttl 720h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.AuthEnabled() {
			return fmt.Errorf("auth is disabled: set auth.jwt_secret or JWT_SECRET")
		}

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		signer := common.NewTokenSigner([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
		token, err := signer.Issue(args[0], tokenScope, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenScope, "scope", constants.ScopeUplink, "Space separated scopes")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl)")
}
