package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tabpilot/bridge/internal/scripts"
)

func newScriptCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Run or list prepackaged page scripts",
	}

	cmd.PersistentFlags().StringVar(&opts.catalog, "catalog", "", "Extra script catalog file (YAML)")

	cmd.AddCommand(newScriptListCmd(opts), newScriptRunCmd(opts))
	return cmd
}

func newScriptListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := scripts.Load(opts.catalog)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range catalog.List() {
				fmt.Fprintf(w, "%s\t%s\n", s.Name, s.Description)
			}
			return w.Flush()
		},
	}
}

func newScriptRunCmd(opts *rootOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a script by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := scripts.Load(opts.catalog)
			if err != nil {
				return err
			}
			script, ok := catalog.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown script %q: see 'tabpilot script list'", args[0])
			}

			res, err := opts.newClient().Run(cmd.Context(), script.Code, opts.timeout)
			if err != nil {
				return renderRunError(err)
			}
			return printValue(cmd.OutOrStdout(), res.Value, raw)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print string results without JSON quoting")
	return cmd
}
