package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"phFolio/internal/auth"
)

type tokenOptions struct {
	keyPath  string
	issuer   string
	userID   uint
	username string
	ttl      time.Duration
}

// newTokenCmd 签发本地开发用的访问令牌，生产环境令牌由外部身份服务签发。
func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "用 RSA 私钥签发开发用访问令牌",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pem, err := os.ReadFile(opts.keyPath)
			if err != nil {
				return fmt.Errorf("read private key: %w", err)
			}
			issuer, err := auth.NewIssuer(pem, opts.issuer, opts.ttl)
			if err != nil {
				return err
			}
			token, err := issuer.IssueAccessToken(opts.userID, opts.username)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&opts.keyPath, "key", envOr("JWT_PRIVATE_KEY_PATH", "keys/private.pem"), "RSA 私钥 PEM 路径")
	cmd.Flags().StringVar(&opts.issuer, "issuer", envOr("JWT_ISSUER", ""), "iss 声明")
	cmd.Flags().UintVar(&opts.userID, "user", 1, "user_id 声明")
	cmd.Flags().StringVar(&opts.username, "username", "dev", "username 声明")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "有效期")

	return cmd
}
