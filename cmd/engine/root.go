package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"autoapply-engine/internal/config"
)

var (
	flagDataDir string
	flagConfig  string

	version = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:           "engine",
	Short:         "Automated job application engine",
	Long:          "Walks vacancy search pages, filters listings, writes cover letters and submits applications, keeping a local ledger so nothing is handled twice.",
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default $AUTOAPPLY_DATA_DIR or .)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <data-dir>/config.yml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(secretCmd)
}

func dataDir() (string, error) {
	dir := flagDataDir
	if dir == "" {
		dir = os.Getenv("AUTOAPPLY_DATA_DIR")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

// loadConfig resolves the config file, seeds it from the bundled default on
// first run, merges the optional denylist file and validates. Validation
// failure is fatal by contract.
func loadConfig() (config.Config, string, error) {
	dir, err := dataDir()
	if err != nil {
		return config.Config{}, "", err
	}

	path := flagConfig
	if path == "" {
		path, err = config.EnsureUserConfig(dir, filepath.Join("config", "config.yml"))
		if err != nil {
			return config.Config{}, "", fmt.Errorf("bootstrap config: %w", err)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.App.DataDir = dir

	if err := config.OverlayDenylists(&cfg, filepath.Join(dir, "denylist.yml")); err != nil {
		log.Printf("[config] denylist overlay: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		return config.Config{}, "", err
	}
	return cfg, dir, nil
}

func ledgerPath(dir string) string {
	return filepath.Join(dir, "ledger.db")
}
