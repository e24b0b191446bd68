package cli

import (
	"context"
	"time"

	"dbcheck/internal/db"
	"dbcheck/internal/dbcheck"
	"dbcheck/internal/platform/config"
	"dbcheck/internal/users"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCheckCommand() *cobra.Command {
	var (
		dsn     string
		timeout time.Duration
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the database check against a DSN and print the envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			log := zap.NewNop()
			if verbose {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				log = l
				defer func() { _ = log.Sync() }()
			}

			pool, err := db.NewPool(ctx, dsn, db.Options{MaxConns: 1, ApplicationName: "dbcheckctl", Lazy: true})
			if err != nil {
				return err
			}
			defer pool.Close()

			res := dbcheck.New(users.New(pool), log).CheckDatabase(ctx)
			_, body := dbcheck.Envelope(res)
			if err := writeJSON(cmd.OutOrStdout(), body); err != nil {
				return err
			}
			if !res.OK() {
				return ErrUnhealthy
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", config.Getenv(config.Prefix+"DB_DSN", ""), "Postgres DSN (default $"+config.Prefix+"DB_DSN)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall check timeout")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")
	return cmd
}
