package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/studyplan/internal/config"
	"github.com/felixgeelhaar/studyplan/internal/ux"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or edit studyplan settings",
	Long: `Manage the settings stored at ~/.studyplan/config.yaml

Settings include:
  • Backend URL, timeouts, rate limit and cache size
  • Mock backend switch and stream delay
  • Output format, theme and colors
  • Logging level and format

STUDYPLAN_API_URL, STUDYPLAN_ENABLE_MOCK and STUDYPLAN_LOG_LEVEL (or
VITE_API_URL and VITE_ENABLE_MOCK from a .env file) override the file.

Examples:
  # View the effective settings
  studyplan config view

  # Edit settings in $EDITOR
  studyplan config edit

  # Get a specific value
  studyplan config get api.url

  # Set a specific value
  studyplan config set api.url https://plans.example.com/api/v1

  # Show the settings file path
  studyplan config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display current settings",
	Long:  `Display the effective settings, environment overrides included, in the selected format.`,
	RunE:  runConfigView,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit settings in $EDITOR",
	Long:  `Open the settings file in your default editor (from the $EDITOR environment variable).`,
	RunE:  runConfigEdit,
}

var configGetCmd = &cobra.Command{
	Use:       "get <key>",
	Short:     "Get a specific setting",
	Long:      `Print the effective value of a setting using dot notation (e.g., api.url).`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.Keys(),
	RunE:      runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a specific setting",
	Long: `Set a setting in the settings file using dot notation.

Keys:
  ` + strings.Join(config.Keys(), "\n  "),
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys(),
	RunE:      runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show settings file path",
	Long:  `Display the path to the settings file.`,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	if cc.Structured() {
		formatter, err := cc.Formatter()
		if err != nil {
			return err
		}
		return formatter.Format(cc.Config)
	}

	data, err := yaml.Marshal(cc.Config)
	if err != nil {
		return err
	}
	fmt.Fprintf(cc.Out, "Configuration file: %s\n\n", cc.ConfigPath)
	fmt.Fprintln(cc.Out, string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	// Write the defaults first so the editor opens a complete file.
	if _, err := os.Stat(cc.ConfigPath); os.IsNotExist(err) {
		if err := config.Save(config.Default(), cc.ConfigPath); err != nil {
			return ux.FormatError(err, "creating configuration")
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, cc.ConfigPath)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	edited, err := config.LoadFile(cc.ConfigPath)
	if err == nil {
		err = edited.Validate()
	}
	if err != nil {
		fmt.Fprintf(cc.ErrOut, "Warning: the configuration may contain errors: %v\n", err)
		fmt.Fprintln(cc.ErrOut, "Please check and fix the configuration file.")
		return err
	}

	fmt.Fprintln(cc.Out, "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	value, err := cc.Config.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cc.Out, value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	key, value := args[0], args[1]

	// Environment overrides must not leak into the file.
	cfg, err := config.LoadFile(cc.ConfigPath)
	if err != nil {
		return ux.FormatError(err, "loading configuration")
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.Save(cfg, cc.ConfigPath); err != nil {
		return ux.FormatError(err, "saving configuration")
	}

	fmt.Fprintf(cc.Out, "✓ Set %s = %s\n", key, value)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintln(cc.Out, cc.ConfigPath)
	return nil
}
