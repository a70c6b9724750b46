package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/myassistant/internal/api"
	"github.com/kalambet/myassistant/internal/config"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage your profile and assistant preferences",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show profile fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetBool("summary")
		return withApp(func(a *app) error {
			if summary {
				fmt.Fprintln(cmd.OutOrStdout(), a.profile.GetSummary())
				return nil
			}
			for _, f := range a.profile.Fields() {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, f.Key), f.Value)
			}
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile field",
	Long: `Set a profile field. List fields take a JSON array or a comma-separated list.

Examples:
  myassistant profile set name "Sam Lee"
  myassistant profile set preferences.tone friendly
  myassistant profile set priority_contacts "boss@example.com, partner@example.com"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		return withApp(func(a *app) error {
			if err := a.profile.SetField(key, value); err != nil {
				return err
			}
			printSuccess("Set %s = %s", key, value)
			return nil
		})
	},
}

func init() {
	profileShowCmd.Flags().Bool("summary", false, "print the summary given to the assistant")
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}

// --- data ---

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Manage stored data",
}

var dataResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all stored data and restore first-run defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL stored data, including your Google sign-in. Use --confirm to proceed.")
			return nil
		}
		return withApp(func(a *app) error {
			printStep("Deleting %d datasets...", len(a.store.Keys()))
			if err := a.store.ClearAllData(); err != nil {
				return err
			}
			printSuccess("All data reset")
			return nil
		})
	},
}

func init() {
	dataResetCmd.Flags().Bool("confirm", false, "confirm data reset")
	dataCmd.AddCommand(dataResetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}

		status := config.SecretStatus(cfg)
		keys := make([]string, 0, len(status))
		for k := range status {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			state := colorize(colorYellow, "not set")
			if status[k] {
				state = colorize(colorGreen, "set")
			}
			fmt.Printf("  %s = %s\n", colorize(colorBold, k), state)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> <value>",
	Short: "Store a secret in the secrets file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetSecret(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve health logging, goals and reminders over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) error {
			s := api.NewMCPServer(api.MCPDeps{Store: a.store, Now: a.now})
			slog.Info("MCP server started (stdio transport)")
			err := server.NewStdioServer(s).Listen(cmd.Context(), os.Stdin, os.Stdout)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("MCP stdio server: %w", err)
			}
			return nil
		})
	},
}
