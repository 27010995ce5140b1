package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tubearchive",
		Short: "Archive TubeArchivist downloads into long-term storage",
		Long: `tubearchive copies videos downloaded by TubeArchivist into a separate
archive folder laid out as <channel>/<title>.<ext>, next to a metadata
sidecar and the thumbnail, embeds title/description/channel tags with
ffmpeg and marks each archived video as watched on the server.

Configuration is read from the environment and from a .env file in the
working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runArchive,
	}

	rootCmd.AddCommand(newArchiveCmd())
	rootCmd.AddCommand(newNFOCmd())
	rootCmd.AddCommand(newScheduleCmd())
	rootCmd.AddCommand(newReconcileCmd())

	return rootCmd
}
