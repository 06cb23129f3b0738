package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MudgalLabs/arthveda-sub000/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage arthveda configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  arthveda config init -o arthveda.yaml
  arthveda config validate -f arthveda.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "arthveda.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintf(out, "\nEdit the file and pass it with:\n  arthveda --config %s position list\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	if c.Compute.Mode == "remote" {
		fmt.Fprintf(out, "  Compute: remote %s (timeout %s)\n", c.Compute.BaseURL, c.Compute.Timeout)
	} else {
		fmt.Fprintf(out, "  Compute: local (timeout %s)\n", c.Compute.Timeout)
	}
	fmt.Fprintf(out, "  Draft: %s %s, debounce %s\n", c.Draft.Instrument, c.Draft.Currency, c.Draft.Debounce)
	fmt.Fprintf(out, "  Journal: %s\n", c.Journal.DBPath)
	return nil
}
