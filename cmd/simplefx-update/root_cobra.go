package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/simplefx/simplefx-update/internal/config"
	"github.com/simplefx/simplefx-update/internal/exitcodes"
	ui "github.com/simplefx/simplefx-update/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
	// ImplementationVersion is the packaged build label, e.g.
	// "simplefx-1842-202406010000 v2.0 June 1 2024".
	ImplementationVersion = ""
)

var rootCmd = &cobra.Command{
	Use:           "simplefx-update",
	Short:         "SimpleFX self-updater",
	Long:          "Find newer SimpleFX builds in the shared directory and relaunch into them.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			Yes:            flagYes,
			NonInteractive: flagNonInteractive,
			Debug:          flagDebug,
		})

		// Set NO_COLOR env so lipgloss and other libraries respect the flag
		if flagNoColor {
			_ = os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagConfig         string
	flagSharedDir      string
	flagArtifact       string
	flagOutput         string
	flagDebug          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to simplefx.yaml (default: next to the executable, then the user config dir)")
	rootCmd.PersistentFlags().StringVar(&flagSharedDir, "shared-dir", "", "Shared directory to search for builds (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagArtifact, "artifact", "", "Path of the running build (default: this executable)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Debug output: extra diagnostic logs")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes for all prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")

	// Only the root gets the grouped help; subcommands use cobra's default.
	defaultHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			defaultHelp(cmd, args)
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		w := os.Stdout

		fmt.Fprintln(w, c.Header(" SimpleFX Update "))
		fmt.Fprintln(w, c.Description(cmd.Long))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)
		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n\n", cmd.Name())
		fmt.Fprintln(w, c.SubHeader("Commands"))
		for _, sub := range cmd.Commands() {
			if sub.Hidden || !sub.IsAvailableCommand() {
				continue
			}
			fmt.Fprintf(w, "  %-12s %s\n", sub.Name(), c.Description(sub.Short))
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, c.SubHeader("Flags"))
		fmt.Fprint(w, cmd.LocalFlags().FlagUsages())
	})
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			ui.PrintError(os.Stderr, ui.ErrorMessage{Problem: err.Error()})
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg reads the config file and environment via internal/config.Load
// and then applies overrides from persistent flags.
func loadCfg() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if flagSharedDir != "" {
		cfg.SharedDir = flagSharedDir
	}
	if flagDebug {
		cfg.Debug = true
	}
	return cfg, nil
}
