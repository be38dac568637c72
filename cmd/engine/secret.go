package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"autoapply-engine/internal/secrets"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage keychain secrets",
	Long: `Manage the secrets the engine reads from the OS keychain: provider API
keys (accounts named by letter.ai.providers[].key_account) and the mail
password (account "imap:<user>@<host>").`,
}

var secretSetCmd = &cobra.Command{
	Use:   "set <account>",
	Short: "Store a secret, value read from the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		value, err := readSecret(fmt.Sprintf("Value for %q: ", args[0]))
		if err != nil {
			return err
		}
		if err := secrets.Set(args[0], value); err != nil {
			return err
		}
		fmt.Println("Stored.")
		return nil
	},
}

var secretDelCmd = &cobra.Command{
	Use:   "del <account>",
	Short: "Delete a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if err := secrets.Delete(args[0]); err != nil {
			return err
		}
		fmt.Println("Deleted.")
		return nil
	},
}

var secretImapCmd = &cobra.Command{
	Use:   "imap",
	Short: "Store the mail password under the derived account name",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		account := secrets.IMAPAccount(cfg)
		value, err := readSecret(fmt.Sprintf("Password for %s: ", account))
		if err != nil {
			return err
		}
		if err := secrets.Set(account, value); err != nil {
			return err
		}
		fmt.Println("Stored.")
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDelCmd)
	secretCmd.AddCommand(secretImapCmd)
}

// readSecret reads without echo when stdin is a terminal.
func readSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	var value string
	if _, err := fmt.Fscanln(os.Stdin, &value); err != nil {
		return "", err
	}
	return value, nil
}
