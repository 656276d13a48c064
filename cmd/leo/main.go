// Command leo serves the Leo chat and offers a few maintenance commands for
// stored transcripts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "leo <command>",
	Short:         "Leo, a private chat companion",
	SilenceUsage:  true,
	SilenceErrors: true,
	// Running without a subcommand starts the server.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(transcriptCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
