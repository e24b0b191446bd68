package cli

import (
	"fmt"
	"time"

	"dbcheck/internal/platform/authjwt"
	"dbcheck/internal/platform/config"

	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	var (
		secret  string
		issuer  string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the check endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := authjwt.New([]byte(secret), issuer)
			if err != nil {
				return err
			}
			tok, exp, err := svc.NewToken(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", config.Getenv(config.Prefix+"JWT_SECRET", ""), "HMAC secret (default $"+config.Prefix+"JWT_SECRET)")
	cmd.Flags().StringVar(&issuer, "issuer", config.Getenv(config.Prefix+"JWT_ISSUER", "dbcheck"), "Token issuer")
	cmd.Flags().StringVar(&subject, "subject", "dbcheckctl", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
