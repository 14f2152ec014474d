package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phototidy/phototidy/pkg/phototidy/config"
	"github.com/phototidy/phototidy/pkg/phototidy/output"
	"github.com/phototidy/phototidy/pkg/phototidy/progress"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "phototidy",
		Short: "Organize photo and video libraries by capture date",
		Long: `Phototidy indexes a media tree, detects duplicate files by content,
plans a deterministic date-based layout and applies it with a durable,
undoable operation log.

The pipeline runs in stages:
  phototidy scan             # Index files and detect duplicates
  phototidy plan             # Generate the target layout
  phototidy execute --move   # Apply the plan (or --dry-run first)
  phototidy undo             # Restore moved files
  phototidy status           # Inspect persisted state`,
	}
)

func init() {
	cobra.OnInitialize(initEnv)

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/phototidy/config.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "pretty", "output format (pretty, plain, json)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "output JSON format (shorthand for -o json)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initEnv wires environment variables for CLI-level settings. Pipeline
// configuration is loaded separately by config.Load.
func initEnv() {
	viper.SetEnvPrefix("PHOTOTIDY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads the pipeline configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		expanded, err := config.ExpandPath(cfgFile)
		if err != nil {
			return nil, err
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, err
		}
		return config.LoadFile(abs)
	}
	return config.Load()
}

// outputFormat returns the selected formatter name.
func outputFormat() string {
	if viper.GetBool("json") {
		return "json"
	}
	format := viper.GetString("output")
	if format == "" {
		format = "pretty"
	}
	return format
}

// render formats and prints a report using the selected formatter.
func render(report *output.Report) error {
	formatter, err := output.Get(outputFormat())
	if err != nil {
		return fmt.Errorf("unknown output format %q: available formats are %v",
			outputFormat(), output.Available())
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	fmt.Print(buf.String())
	return nil
}

// progressEmitter returns an emitter printing stage progress to stderr,
// or a discarding one when quiet or JSON output is requested.
func progressEmitter() progress.Emitter {
	if getQuiet() || outputFormat() == "json" {
		return progress.Discard
	}
	return progress.Func(func(ev progress.Event) {
		if ev.Total == 0 {
			return
		}
		fmt.Fprintf(os.Stderr, "\r%s: %d/%d", ev.Stage, ev.Processed, ev.Total)
		if ev.Processed == ev.Total {
			fmt.Fprintln(os.Stderr)
		}
	})
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Printf(format+"\n", args...)
	}
}
