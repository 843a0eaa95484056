package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/spigell/hirelytics/internal/ai"
)

// Actual version and commit can be specified in build command.
var (
	version = "unknown"
	commit  = "none"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and supported providers",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s (commit %s, %s)\n", app, version, commit, runtime.Version())
		fmt.Printf("providers: %s, %s, %s, %s\n", ai.ProviderOpenAI, ai.ProviderCohere, ai.ProviderJina, ai.ProviderGemini)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
