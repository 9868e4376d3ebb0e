package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/splash"
	ui "github.com/simplefx/simplefx-update/internal/ui"
)

var splashCmd = &cobra.Command{
	Use:    "splash --status-file PATH",
	Short:  "Show the updating indicator until the relay finishes",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("status-file")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if path == "" {
			return exitcodes.InvalidArgsError("--status-file is required")
		}

		title := "Updating"
		if cfg, err := loadCfg(); err == nil && cfg.AppName != "" {
			title = "Updating " + cfg.AppName
		}
		interactive := term.IsTerminal(int(os.Stdout.Fd()))
		err := splash.Run(cmd.Context(), splash.Options{
			StatusPath:  path,
			Title:       title,
			Timeout:     timeout,
			Output:      os.Stdout,
			Interactive: interactive,
		})
		if interactive {
			ui.ResetTerminalAfterTUI()
		}
		if err != nil && !errors.Is(err, splash.ErrTimedOut) {
			return silentErr{exitcodes.WrapError(exitcodes.HeadlessCode(err), "updating indicator", err)}
		}
		// a relay that never reports back is not the indicator's failure
		return nil
	},
}

func init() {
	splashCmd.Flags().String("status-file", "", "Status file written by the relay")
	splashCmd.Flags().Duration("timeout", splash.DefaultTimeout, "Give up waiting after this long")
	rootCmd.AddCommand(splashCmd)
}

