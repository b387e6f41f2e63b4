package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ibconn/internal/trace"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ibconn",
	Short: "Broker API connection with a message dispatcher",
	Long: "ibconn wraps a broker session in a single connection object: every callback " +
		"and every request becomes a typed message fanned out to registered listeners.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeSystem()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := trace.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shut down tracer: %v\n", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
