package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var permActor string

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Manage roles, managed groups and blacklists",
}

var permShowCmd = &cobra.Command{
	Use:   "show <user>",
	Short: "Show a user's roles, managed groups and blacklist scopes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()

		entry := engine.Permissions().Entry(args[0])
		if entry == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "no permission entry")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "roles:          %s\n", joinOrDash(entry.Roles))
		fmt.Fprintf(cmd.OutOrStdout(), "managed groups: %s\n", joinOrDash(entry.ManagedGroups))
		fmt.Fprintf(cmd.OutOrStdout(), "blacklisted in: %s\n", joinOrDash(entry.BlacklistedIn))
		return nil
	},
}

var permGrantCmd = &cobra.Command{
	Use:   "grant <user> <role>",
	Short: "Grant a role (admin, group_manager, private_user, global_blacklisted)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()
		return engine.GrantRole(permActor, args[0], args[1])
	},
}

var permRevokeCmd = &cobra.Command{
	Use:   "revoke <user> <role>",
	Short: "Revoke a role",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()
		return engine.RevokeRole(permActor, args[0], args[1])
	},
}

var permManageCmd = &cobra.Command{
	Use:   "manage <add|remove> <user> <group>",
	Short: "Add or remove a group from a user's managed set",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()
		switch args[0] {
		case "add":
			return engine.AddManagedGroup(permActor, args[1], args[2])
		case "remove":
			return engine.RemoveManagedGroup(permActor, args[1], args[2])
		}
		return fmt.Errorf("unknown manage action %q", args[0])
	},
}

var blacklistGroup string
var blacklistGlobal bool

var permBlacklistCmd = &cobra.Command{
	Use:   "blacklist <user>",
	Short: "Blacklist a user in one group (--group) or globally (--global)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()
		if blacklistGlobal {
			return engine.SetGlobalBlacklist(permActor, args[0], true)
		}
		if blacklistGroup == "" {
			return fmt.Errorf("one of --group or --global is required")
		}
		return engine.BlacklistInGroup(permActor, args[0], blacklistGroup)
	},
}

var permUnblacklistCmd = &cobra.Command{
	Use:   "unblacklist <user>",
	Short: "Lift a group (--group) or global (--global) blacklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, release, err := openEngine()
		if err != nil {
			return err
		}
		defer release()
		if blacklistGlobal {
			return engine.SetGlobalBlacklist(permActor, args[0], false)
		}
		if blacklistGroup == "" {
			return fmt.Errorf("one of --group or --global is required")
		}
		return engine.Unblacklist(permActor, args[0], blacklistGroup)
	},
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func init() {
	permissionCmd.PersistentFlags().StringVar(&permActor, "actor", "", "User id the change is made on behalf of")
	permBlacklistCmd.Flags().StringVar(&blacklistGroup, "group", "", "Group to blacklist in")
	permBlacklistCmd.Flags().BoolVar(&blacklistGlobal, "global", false, "Apply the global blacklist")
	permUnblacklistCmd.Flags().StringVar(&blacklistGroup, "group", "", "Group to lift the blacklist in")
	permUnblacklistCmd.Flags().BoolVar(&blacklistGlobal, "global", false, "Lift the global blacklist")

	permissionCmd.AddCommand(permShowCmd)
	permissionCmd.AddCommand(permGrantCmd)
	permissionCmd.AddCommand(permRevokeCmd)
	permissionCmd.AddCommand(permManageCmd)
	permissionCmd.AddCommand(permBlacklistCmd)
	permissionCmd.AddCommand(permUnblacklistCmd)
	rootCmd.AddCommand(permissionCmd)
}
