package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noelmcmichael/izerwaren-marine-shop-sub003/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// exitCode carries a finished rollout's exit contract out of RunE, so
// deferred cleanup inside the command still runs before the process exits.
var exitCode int

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

var rootCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Rollout - safe deployment orchestrator for managed container platforms",
	Long: `Rollout deploys pre-built container images to a managed serverless
platform with health-gated traffic migration.

Every deploy ships as a zero-traffic candidate revision, is probed until
healthy, and only then receives traffic. A failed candidate never serves
a request; a failure after a partial traffic shift restores the previous
revision automatically.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, _ := cmd.Flags().GetString("log-level")
		jsonOut, _ := cmd.Flags().GetBool("log-json")
		log.Init(log.Config{
			Level:      log.Level(level),
			JSONOutput: jsonOut,
		})
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Rollout version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit logs as JSON instead of console format")
}

// envOr returns the environment value for key, or fallback when unset
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
