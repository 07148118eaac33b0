package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyhub/content-service/internal/auth"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the content API",
	Long:  `Signs a token with JWT_SECRET, for service accounts and scripts that edit content.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _ := setup(cmd)
		token, err := auth.IssueToken(cfg.JWTSecret, tokenSubject, tokenRole, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "contentctl", "Token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "editor", "Role claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Validity period")
	rootCmd.AddCommand(tokenCmd)
}
