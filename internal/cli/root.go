// Package cli implements the tabpilot command surface.
//
// Every command renders what the bridge returned; the interesting logic
// (submit, backoff polling, error classification) lives in the client
// package. Exit codes distinguish "the page code failed" from "nothing
// was listening".
package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tabpilot/bridge/internal/client"
)

type rootOptions struct {
	serverURL  string
	timeout    time.Duration
	configPath string
	catalog    string
}

// Execute runs the CLI
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "tabpilot",
		Short:         "Run JavaScript in your browser tab from the terminal",
		Long:          "tabpilot submits code to the bridge daemon, which forwards it to the connected browser tab and returns the result.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			fileCfg, err := loadFileConfig(opts.configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("server") {
				opts.serverURL = fileCfg.ServerURL
			}
			if !cmd.Flags().Changed("timeout") && fileCfg.TimeoutMs > 0 {
				opts.timeout = time.Duration(fileCfg.TimeoutMs) * time.Millisecond
			}
			if opts.catalog == "" {
				opts.catalog = fileCfg.CatalogPath
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", defaultServerURL, "Bridge base URL")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "How long to wait for the page to reply")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file path (default ~/.config/tabpilot/config.toml)")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newScriptCmd(opts),
		newControlCmd(opts),
		newNotificationsCmd(opts),
		newHealthCmd(opts),
	)

	return rootCmd
}

func (o *rootOptions) newClient() *client.Client {
	return client.New(client.Config{BaseURL: o.serverURL})
}
