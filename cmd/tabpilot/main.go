package main

import (
	"os"

	"github.com/tabpilot/bridge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
