package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/tabpilot/bridge/internal/client"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var file string
	var raw bool

	cmd := &cobra.Command{
		Use:   "run [code]",
		Short: "Execute JavaScript in the connected tab",
		Long: `Execute JavaScript in the connected tab and print the result.

Code comes from the argument, from --file, or from stdin when neither
is given. The last expression's value is printed as JSON.`,
		Example: `  tabpilot run 'document.title'
  tabpilot run --file snippet.js
  echo 'location.href' | tabpilot run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := readCode(args, file)
			if err != nil {
				return err
			}

			res, err := opts.newClient().Run(cmd.Context(), code, opts.timeout)
			if err != nil {
				return renderRunError(err)
			}
			return printValue(cmd.OutOrStdout(), res.Value, raw)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Read code from a file")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print string results without JSON quoting")

	return cmd
}

func readCode(args []string, file string) (string, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read code file: %w", err)
		}
		return string(data), nil
	case len(args) == 1:
		return args[0], nil
	default:
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.New("no code given: pass an argument, --file, or pipe to stdin")
		}
		return string(data), nil
	}
}

func printValue(w io.Writer, v interface{}, raw bool) error {
	if v == nil {
		return nil
	}
	if raw {
		if s, ok := v.(string); ok {
			fmt.Fprintln(w, s)
			return nil
		}
	}
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("render result: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// renderRunError keeps the common failures to one human line instead of
// a wrapped error chain.
func renderRunError(err error) error {
	var execErr *client.ExecError
	switch {
	case errors.Is(err, client.ErrBridgeUnreachable):
		return errors.New("bridge is not running: start it with 'bridged'")
	case errors.Is(err, client.ErrNoPeer):
		return errors.New("no browser tab connected: open the extension in an active tab")
	case errors.Is(err, client.ErrTimeout):
		return errors.New("timed out waiting for the tab to reply")
	case errors.As(err, &execErr):
		return fmt.Errorf("page error: %s", execErr.Message)
	default:
		return err
	}
}
