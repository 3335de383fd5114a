package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/eip3074-protection/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of eip3074-protection.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nCommit: %s\nOS/Arch: %s/%s\n",
			version.GetRelease(), version.GetGitCommit(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
