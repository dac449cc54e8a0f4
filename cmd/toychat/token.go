package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/toychat/internal/auth"
	"github.com/vovakirdan/toychat/internal/config"
	"github.com/vovakirdan/toychat/internal/log"
)

var (
	tokenUser string
	tokenName string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development identity token with the configured secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := config.Load(log.New("warn", "console"), cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.JWT.Secret == "" {
			return errors.New("jwt.secret is not configured")
		}

		ttl := cfg.JWT.TTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		token, err := auth.GenerateToken(&auth.JWTConfig{
			Secret:   []byte(cfg.JWT.Secret),
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
			TTL:      ttl,
		}, tokenUser, tokenName)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "subject of the token")
	tokenCmd.Flags().StringVar(&tokenName, "name", "", "display name (defaults to the subject)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to jwt.ttl)")
	_ = tokenCmd.MarkFlagRequired("user")
}
