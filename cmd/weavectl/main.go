// weavectl is the operator tool for the Weave canvas core: mint and inspect
// packed ids, enqueue operations, and dump a thread's stored canvas.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "weavectl",
		Short:         "Operate the Weave canvas core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newIDCommand(), newEnqueueCommand(), newShowCommand(), newThreadCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
