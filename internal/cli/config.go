package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuibot/yuibot/internal/config"
	"github.com/yuibot/yuibot/internal/gateway"
	"github.com/yuibot/yuibot/internal/resolve"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and mutate the layered configuration",
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.Path()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key-path>",
	Short: "Get the top-level value of a dotted key path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()
		v, err := config.TopValue(engine.Store().Snapshot(), args[0])
		if err != nil {
			return err
		}
		printValue(cmd, v)
		return nil
	},
}

var (
	resolveUser  string
	resolveGroup string
	resolveBlock string
)

var configResolveCmd = &cobra.Command{
	Use:   "resolve <key-path>",
	Short: "Resolve the effective value of a key for a user, printing the supplying level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()

		var ctx resolve.Context
		if resolveGroup != "" {
			ctx = engine.ContextFor(resolve.ChannelGroup, resolveGroup, resolveUser)
		} else {
			ctx = engine.ContextFor(resolve.ChannelPrivate, "", resolveUser)
		}
		if resolveBlock != "" {
			if !config.ValidClass(resolveBlock) {
				return fmt.Errorf("unknown role block %q", resolveBlock)
			}
			ctx.Block = config.RoleClass(resolveBlock)
		}

		res, err := engine.Resolve(args[0], ctx)
		if err != nil {
			return err
		}
		printValue(cmd, res.Value)
		fmt.Fprintf(cmd.OutOrStdout(), "level: %s\n", res.Level)
		return nil
	},
}

var (
	setScope string
	setGroup string
	setUser  string
	setClass string
	setActor string
)

var configSetCmd = &cobra.Command{
	Use:   "set <key-path> <value>",
	Short: "Set a key at a target scope (value is JSON, falling back to plain string)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()

		target := gateway.SetTarget{
			Scope:   gateway.TargetScope(setScope),
			GroupID: setGroup,
			UserID:  setUser,
			Class:   config.RoleClass(setClass),
		}
		if setClass != "" && !config.ValidClass(setClass) {
			return fmt.Errorf("unknown role block %q", setClass)
		}
		return engine.SetConfig(target, args[0], parseValue(args[1]), setActor)
	},
}

// parseValue decodes raw as JSON so `true`, `3`, `0.05` and arrays arrive
// typed; anything that does not parse is taken as a plain string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func printValue(cmd *cobra.Command, v any) {
	switch v.(type) {
	case map[string]any, []any, []string:
		out, _ := json.MarshalIndent(v, "", "  ")
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
}

func init() {
	configResolveCmd.Flags().StringVar(&resolveUser, "user", "", "User id the key is resolved for")
	configResolveCmd.Flags().StringVar(&resolveGroup, "group", "", "Group id (omit for a private chat)")
	configResolveCmd.Flags().StringVar(&resolveBlock, "block", "", "Force a role block (user|manager|blacklisted)")

	configSetCmd.Flags().StringVar(&setScope, "scope", string(gateway.TargetGlobal), "Target scope: global, group_default, group_role, group_settings, user_group, user_private, private_default")
	configSetCmd.Flags().StringVar(&setGroup, "group", "", "Group id for group-scoped targets")
	configSetCmd.Flags().StringVar(&setUser, "user", "", "User id for specific-user targets")
	configSetCmd.Flags().StringVar(&setClass, "class", "", "Role block for role targets (user|manager|blacklisted)")
	configSetCmd.Flags().StringVar(&setActor, "actor", "", "User id the change is made on behalf of")
	configSetCmd.MarkFlagRequired("actor")

	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configResolveCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
