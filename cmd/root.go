package cmd

import (
	"os"

	"github.com/mezonai/dosguard/logx"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dosguard",
	Short: "DoS defense for UTXO peer-to-peer nodes",
	Long:  "Command line interface for running the orphan pool, peer ban table and signature cache, and inspecting stored ban lists.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logx.Error("CMD", "Command execution failed:", err)
		os.Exit(1)
	}
}
