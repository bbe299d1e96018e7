package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mezonai/dosguard/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Work with dosguard configuration files",
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate a config file and print the effective values",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigPath
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := config.LoadDosConfig(path)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(config.ConfigFile{Dos: *cfg})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

var configDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the default configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(config.ConfigFile{Dos: *config.DefaultDosConfig()})
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configDefaultsCmd)
}
