package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/update"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the shared directory for a newer build",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validOutput(flagOutput); err != nil {
			return err
		}
		d, err := newDeps()
		if err != nil {
			return err
		}
		initLogging(d.Cfg, cmd)
		return runCheck(cmd.Context(), d)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// runCheck reports whether an update is available without changing
// anything. Only an unreachable shared directory or bad config fail.
func runCheck(ctx context.Context, d *Deps) error {
	if err := d.Cfg.Validate(); err != nil {
		return err
	}
	p := d.Printer

	seq := update.New(sequencerOptions(d), update.Deps{Reader: d.Reader})
	decision, checkErr := seq.Check(ctx)
	res := update.Summarize(seq.Current(), decision, checkErr)

	if p.Structured() {
		if err := p.Value(res); err != nil {
			return err
		}
	} else {
		p.Header("Update check")
		p.KeyValueLine("Installed", res.CurrentVersion)
		p.KeyValueLine("Path", res.CurrentPath)
		p.KeyValueLine("Update", p.Colors.StatusIcon(res.UpdateAvailable))
		if res.UpdateAvailable {
			p.KeyValueLine("Available", res.CandidateVersion)
			p.KeyValueLine("From", res.CandidatePath)
			p.Success("Update available, run: simplefx-update update")
		} else {
			p.Info(checkMessage(checkErr))
		}
	}

	if errors.Is(checkErr, update.ErrSharedDirUnavailable) {
		if !p.Structured() {
			p.Textf("%s", explain(checkErr, d.Cfg).Format(p.Colors))
		}
		return silentErr{exitcodes.PreconditionWrap("shared directory unavailable", checkErr)}
	}
	return nil
}

func checkMessage(err error) string {
	switch {
	case errors.Is(err, update.ErrNotNewer):
		return "Already up to date"
	case errors.Is(err, update.ErrNoCandidate):
		return "No matching build in the shared directory"
	case errors.Is(err, update.ErrUnreadableVersion):
		return "Skipped: " + err.Error()
	case err != nil:
		return err.Error()
	default:
		return "No update available"
	}
}
