package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/djlord-it/easy-announce/internal/config"
	"github.com/djlord-it/easy-announce/internal/locator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration (no browser, no connections)",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print effective configuration as JSON (secrets masked)",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var locatorsCmd = &cobra.Command{
	Use:   "locators",
	Short: "Print the effective locator catalog as YAML",
	Long: `Prints every lookup site with its ordered variants. Save the output, edit it
and point LOCATORS_FILE at it to patch selectors without a rebuild.`,
	Args: cobra.NoArgs,
	RunE: runLocators,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "announcer version %s (commit: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd, configCmd, locatorsCmd, versionCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return exitWith(exitInvalidConfig, err)
	}
	if _, err := loadLocators(cfg); err != nil {
		return exitWith(exitInvalidConfig, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "configuration valid")
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	data, err := cfg.MaskedJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runLocators(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := loadLocators(cfg)
	if err != nil {
		return exitWith(exitInvalidConfig, err)
	}

	data, err := locator.Marshal(cat)
	if err != nil {
		return fmt.Errorf("failed to marshal locators: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// loadLocators returns the built-in catalog with LOCATORS_FILE overlaid.
func loadLocators(cfg config.Config) (locator.Catalog, error) {
	cat := locator.Default()
	if cfg.LocatorsFile == "" {
		return cat, nil
	}
	return locator.LoadFile(cfg.LocatorsFile, cat)
}
