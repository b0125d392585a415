package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabpilot/bridge/internal/client"
)

func newHealthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show bridge status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := opts.newClient().Health(cmd.Context())
			if err != nil {
				if errors.Is(err, client.ErrBridgeUnreachable) {
					return errors.New("bridge is not running: start it with 'bridged'")
				}
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bridge:          %s\n", opts.serverURL)
			fmt.Fprintf(out, "connected tabs:  %d\n", h.ConnectedPeers)
			fmt.Fprintf(out, "pending:         %d\n", h.Pending)
			fmt.Fprintf(out, "completed:       %d\n", h.Completed)
			fmt.Fprintf(out, "control session: %s\n", h.ControlSession)
			return nil
		},
	}
}
