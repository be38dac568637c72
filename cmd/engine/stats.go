package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"autoapply-engine/internal/ledger"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger totals and recent applications",
	RunE: func(_ *cobra.Command, _ []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		led, err := ledger.Open(ledgerPath(dir))
		if err != nil {
			return err
		}
		defer led.Close()

		st, err := led.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Applied: %d\nSkipped: %d\n", st.TotalApplied, st.TotalSkipped)
		if len(st.Recent) > 0 {
			fmt.Println("\nMost recent applications:")
			for _, r := range st.Recent {
				fmt.Printf("  %s  %-40s %s\n", r.AppliedAt, r.Title, r.Employer)
			}
		}
		return nil
	},
}

var flagYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe the ledger",
	Long:  "Deletes every applied and skipped record. Cleared listings will be picked up again on the next run.",
	RunE: func(_ *cobra.Command, _ []string) error {
		dir, err := dataDir()
		if err != nil {
			return err
		}
		if !flagYes && !confirm("Wipe the ledger? Everything will be retried.") {
			fmt.Println("Aborted.")
			return nil
		}
		led, err := ledger.Open(ledgerPath(dir))
		if err != nil {
			return err
		}
		defer led.Close()
		if err := led.ClearAll(); err != nil {
			return err
		}
		fmt.Println("Ledger cleared.")
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&flagYes, "yes", "y", false, "skip the confirmation prompt")
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
