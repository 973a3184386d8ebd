package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shiftguard",
	Short: "Attendance accounting and alerting engine",
	Long: `shiftguard evaluates employee attendance on a schedule and raises
geofence, overtime, break and missing clock-out alerts.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(migrateCmd)
}
