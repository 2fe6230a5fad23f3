// Command vfsctl exposes pkg/kernel operations as CLI subcommands against
// a configurable backend, for manual exercise of the kernel without the
// RPC layer (SPEC_FULL §4.15). Modeled on ivoronin-dupedog's cmd/dupedog
// (root cobra.Command + one file per subcommand, flags bound directly to
// an options struct).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "vfsctl",
		Short:   "Exercise the vfskernel operation family from the command line",
		Version: version,
	}

	root.PersistentFlags().StringVar(&backendFlag, "backend", "memory", "metadata/blob backend: memory | bolt")
	root.PersistentFlags().StringVar(&boltPathFlag, "bolt-path", "vfsctl.db", "bbolt database path (--backend=bolt)")

	root.AddCommand(
		newMkdirCmd(),
		newRmCmd(),
		newLsCmd(),
		newCatCmd(),
		newWriteCmd(),
		newMvCmd(),
		newLnCmd(),
		newStatCmd(),
		newSearchCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
