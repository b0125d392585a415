package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notices"},
		Short:   "Drain queued refocus notifications",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			notices, err := opts.newClient().Notifications(cmd.Context())
			if err != nil {
				return renderRunError(err)
			}
			if len(notices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no notifications")
				return nil
			}
			for _, n := range notices {
				status := "ok"
				if !n.OK {
					status = "failed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  [%s] %s\n",
					n.ReceivedAt.Format("15:04:05"), status, n.Message)
			}
			return nil
		},
	}
}
