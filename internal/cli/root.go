// Package cli implements the yuibot command tree.
package cli

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yuibot/yuibot/internal/audit"
	"github.com/yuibot/yuibot/internal/config"
	"github.com/yuibot/yuibot/internal/gateway"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/yuibot/yuibot/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		" __   __    _ ____        _\n" +
		" \\ \\ / /   (_) __ )  ___ | |_\n" +
		"  \\ V / | | | |  _ \\ / _ \\| __|\n" +
		"   | || |_| | | |_) | (_) | |_\n" +
		"   |_| \\__,_|_|____/ \\___/ \\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "yuibot",
	Short: "YuiBot - chat-bot policy and configuration engine",
	Long:  color.CyanString(logo) + "\nLayered configuration resolution, permissions and rate policy for a multi-channel chat bot.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the yuibot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "yuibot", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// openEngine loads the config, wires the engine with write-behind
// persistence and the audit journal, and returns a release func that
// flushes everything.
func openEngine() (*gateway.Engine, func(), error) {
	path, err := config.Path()
	if err != nil {
		return nil, nil, err
	}
	doc, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	store := config.NewStore(doc, &config.FilePersister{Path: path})

	opts := []gateway.Option{}
	var rec *audit.Recorder
	rec, err = audit.Open(filepath.Join(filepath.Dir(path), "audit.db"))
	if err != nil {
		// The journal is best effort on the CLI path; mutations still apply.
		fmt.Fprintf(rootCmd.ErrOrStderr(), "warning: audit journal unavailable: %v\n", err)
	} else {
		opts = append(opts, gateway.WithAudit(rec))
	}

	engine := gateway.New(store, opts...)
	release := func() {
		store.Close()
		if rec != nil {
			rec.Close()
		}
	}
	return engine, release, nil
}
