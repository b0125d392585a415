package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tabpilot/bridge/internal/shared/types"
)

func newControlCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Manage a tab control session",
	}

	cmd.AddCommand(newControlStartCmd(opts), newControlStopCmd(opts), newControlNextCmd(opts))
	return cmd
}

func newControlStartCmd(opts *rootOptions) *cobra.Command {
	var (
		refocus   string
		visual    bool
		audio     bool
		wrap      bool
		stepDelay int
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Begin a control session in the connected tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := types.DefaultControlConfig()
			if cmd.Flags().Changed("refocus") {
				policy := types.RefocusPolicy(refocus)
				switch policy {
				case types.RefocusAuto, types.RefocusManual, types.RefocusOff:
					cfg.Refocus = policy
				default:
					return fmt.Errorf("invalid refocus policy %q: want auto, manual, or off", refocus)
				}
			}
			if cmd.Flags().Changed("visual") {
				cfg.VisualFeedback = visual
			}
			if cmd.Flags().Changed("audio") {
				cfg.AudioFeedback = audio
			}
			if cmd.Flags().Changed("wrap") {
				cfg.Wrap = wrap
			}
			if cmd.Flags().Changed("step-delay-ms") {
				cfg.StepDelayMs = stepDelay
			}

			requestID, err := opts.newClient().StartControl(cmd.Context(), &cfg)
			if err != nil {
				return renderRunError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "control session started (request %s)\n", requestID)
			return nil
		},
	}

	cmd.Flags().StringVar(&refocus, "refocus", string(types.RefocusAuto), "Refocus policy after reload: auto, manual, or off")
	cmd.Flags().BoolVar(&visual, "visual", true, "Highlight the controlled element")
	cmd.Flags().BoolVar(&audio, "audio", false, "Audible feedback on focus moves")
	cmd.Flags().BoolVar(&wrap, "wrap", true, "Wrap around when stepping past the last element")
	cmd.Flags().IntVar(&stepDelay, "step-delay-ms", 0, "Delay between focus steps in milliseconds")

	return cmd
}

func newControlNextCmd(opts *rootOptions) *cobra.Command {
	var wrap bool

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Advance focus to the next element in the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args := map[string]interface{}{}
			if cmd.Flags().Changed("wrap") {
				args["wrap"] = wrap
			}

			res, err := opts.newClient().Directive(cmd.Context(), "next", args, opts.timeout)
			if err != nil {
				return renderRunError(err)
			}
			return printValue(cmd.OutOrStdout(), res.Value, false)
		},
	}

	cmd.Flags().BoolVar(&wrap, "wrap", true, "Wrap around past the last element")
	return cmd
}

func newControlStopCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "End the control session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.newClient().StopControl(cmd.Context()); err != nil {
				return renderRunError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "control session stopped")
			return nil
		},
	}
}
