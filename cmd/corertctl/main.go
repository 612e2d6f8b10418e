// Command corertctl runs the corert runtime's bundled demo scenarios
// from the command line, so the scheduler's cross-domain and
// cancellation behavior can be observed without writing a Go program.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "corertctl",
		Short:         "Run corert demo scenarios",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}
