// Package main implements the fetchguard CLI.
//
// fetchguard demonstrates and exercises the double-fetch detector runtime:
//
//	fetchguard demo       # run a validate-then-use double fetch in-process
//	fetchguard version    # show runtime version information
//
// The demo command watches an in-process buffer as if it were an attached
// shared-memory mapping, performs the classic validate-then-use read pair a
// number of times, and shows how probabilistic fault injection turns the
// latent bug into visible inconsistencies.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "fetchguard",
		Short: "Double-fetch detector for shared memory regions",
		Long: `fetchguard drives the pure-Go double-fetch (TOCTOU) detector.

A double fetch reads the same shared bytes twice without an intervening
write: validate with the first read, trust the second, and an attacker
mutates the data in between. The runtime flags the pattern and corrupts the
re-fetched bytes with a coin flip, so the bug surfaces as an inconsistency
instead of staying exploitable and silent.`,
		SilenceUsage: true,
	}

	root.AddCommand(newDemoCommand())
	root.AddCommand(newVersionCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
