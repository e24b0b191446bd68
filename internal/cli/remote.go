package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"dbcheck/internal/dbcheck"
	"dbcheck/internal/platform/health"
	"dbcheck/internal/probe"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newHTTPCommand() *cobra.Command {
	var (
		url     string
		token   string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "http",
		Short: "Call " + dbcheck.Path + " on a running dbcheckd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return err
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
				return err
			}
			switch {
			case resp.StatusCode == http.StatusInternalServerError:
				return ErrUnhealthy
			case resp.StatusCode >= 300:
				return fmt.Errorf("unexpected status %s", resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:8080"+dbcheck.Path, "Endpoint URL")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token (see: dbcheckctl token)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}

func newGRPCCommand() *cobra.Command {
	var (
		addr    string
		service string
	)

	cmd := &cobra.Command{
		Use:   "grpc",
		Short: "Query grpc.health.v1 on a running dbcheckd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()

			if err := health.GRPCHealthCheck(conn, service)(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", addr, err)
				return ErrUnhealthy
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: SERVING\n", addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:9090", "gRPC address")
	cmd.Flags().StringVar(&service, "service", probe.Service, "Health service name")
	return cmd
}
