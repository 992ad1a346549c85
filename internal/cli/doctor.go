package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuibot/yuibot/internal/config"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run configuration diagnostics",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		report := config.RunDoctor(path)
		for _, check := range report.Checks {
			symbol := "PASS"
			switch check.Status {
			case config.DoctorWarn:
				symbol = "WARN"
			case config.DoctorFail:
				symbol = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", symbol, check.Name, check.Message)
		}
		if n := report.Failures(); n > 0 {
			return fmt.Errorf("doctor found %d failing check(s)", n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
