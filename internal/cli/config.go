package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/W-Z-FinTech-GmbH/sms-plusserver/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print resolved configuration",
	Long: `Load and print the resolved configuration as TOML.
Shows the result of merging defaults, plussms.toml, PLUSSMS_* environment
variables, and flags.`,
	RunE: runConfig,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long: `Get a specific configuration value by dotted key path.
Examples: service.username, service.timeout, send.orig, logging.level`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in plussms.toml",
	Long: `Set a configuration value in the plussms.toml config file.
Creates the file if it doesn't exist.
Examples:
  plussms config set service.username acme
  plussms config set service.timeout 30
  plussms config set send.orig alerts`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a commented default plussms.toml",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(cfg)
	}

	out, err := cfg.ToTOML()
	if err != nil {
		return fmt.Errorf("serializing config: %w", err)
	}

	fmt.Print(out)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	value, err := config.GetValue(cfg, args[0])
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{"key": args[0], "value": value})
	}

	fmt.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = "plussms.toml"
	}

	key := args[0]
	value := args[1]

	// Validate the key is recognized.
	if !config.IsValidKey(key) {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := config.SetValue(configPath, key, value); err != nil {
		return fmt.Errorf("setting config value: %w", err)
	}

	fmt.Printf("%s = %s\n", key, value)
	fmt.Printf("Written to %s\n", configPath)

	// Validate the resulting config.
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config file has errors: %v\n", err)
	} else if err := cfg.Validate(); err != nil {
		// Only warn, don't fail: the user may be setting values incrementally.
		parts := strings.SplitN(err.Error(), ": ", 2)
		if len(parts) > 1 {
			fmt.Fprintf(os.Stderr, "Note: %s\n", parts[1])
		}
	}

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = "plussms.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := config.GenerateDefault(configPath); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	fmt.Printf("Wrote %s\n", configPath)
	fmt.Println("Set your credentials:")
	fmt.Println("  plussms config set service.username <user>")
	fmt.Println("  plussms config set service.password <secret>")
	return nil
}
