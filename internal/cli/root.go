// Package cli implements dbcheckctl, the operator client for dbcheckd.
package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

// ErrUnhealthy is returned when a probe completed but reported failure.
var ErrUnhealthy = errors.New("database check failed")

// NewRootCmd wires the cobra root command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dbcheckctl",
		Short:         "Probe dbcheck targets",
		Long:          "dbcheckctl runs the database check directly, or queries a running dbcheckd over HTTP or gRPC.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCheckCommand())
	root.AddCommand(newHTTPCommand())
	root.AddCommand(newGRPCCommand())
	root.AddCommand(newTokenCommand())
	return root
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
