package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mezonai/dosguard/banstore"
	"github.com/mezonai/dosguard/config"
	"github.com/mezonai/dosguard/security/banscore"
)

var (
	bansConfigPath string
	bansShowAll    bool
)

var bansCmd = &cobra.Command{
	Use:   "bans",
	Short: "Inspect the persisted ban list",
}

var bansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored bans",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDosConfig(bansConfigPath)
		if err != nil {
			return err
		}
		store, err := banstore.New(cfg.BanStoreOptions())
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Load()
		if err != nil {
			return err
		}
		return printBans(cmd.OutOrStdout(), entries, time.Now(), bansShowAll)
	},
}

func init() {
	rootCmd.AddCommand(bansCmd)
	bansCmd.AddCommand(bansListCmd)
	bansCmd.PersistentFlags().StringVarP(&bansConfigPath, "config", "c", defaultConfigPath, "Path to the .ini or .yml config")
	bansListCmd.Flags().BoolVar(&bansShowAll, "all", false, "Include bans that already expired")
}

func printBans(w io.Writer, entries []banscore.BanEntry, now time.Time, all bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tSCORE\tBANNED UNTIL\tREMAINING")
	shown := 0
	for _, entry := range entries {
		remaining := entry.Until.Sub(now)
		if remaining <= 0 {
			if !all {
				continue
			}
			remaining = 0
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", entry.Addr, entry.Score, entry.Until.UTC().Format(time.RFC3339), remaining.Truncate(time.Second))
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(tw, "(empty)")
	}
	return tw.Flush()
}
