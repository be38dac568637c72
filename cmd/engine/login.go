package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and persist the browser session",
	Long:  "Runs the email-plus-code sign-in flow once so that later sessions start authenticated. Requires the mail password in the keychain, see 'engine secret'.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Auth.LoginURL == "" || cfg.Auth.Email == "" {
			return fmt.Errorf("auth.login_url and auth.email must be configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pg, closeBrowser, err := openBrowser(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeBrowser()

		if err := ensureLoggedIn(ctx, cfg, pg); err != nil {
			return err
		}
		fmt.Println("Signed in.")
		return nil
	},
}
