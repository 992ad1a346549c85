package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yuibot/yuibot/internal/audit"
	"github.com/yuibot/yuibot/internal/config"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the mutation journal",
}

var auditRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Print the most recent config and permission changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		rec, err := audit.Open(filepath.Join(filepath.Dir(path), "audit.db"))
		if err != nil {
			return err
		}
		defer rec.Close()

		entries, err := rec.Recent(auditLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-22s %s  %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Actor, e.Target)
			if e.KeyPath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s -> %s", e.KeyPath, e.OldValue, e.NewValue)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	auditRecentCmd.Flags().IntVarP(&auditLimit, "limit", "n", 20, "Maximum entries to print")
	auditCmd.AddCommand(auditRecentCmd)
	rootCmd.AddCommand(auditCmd)
}
