package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/update"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install a newer build from the shared directory",
	Long: `Check the shared directory and, once confirmed, relaunch into the newer build.

The running build exits as soon as the updated one has started. The
replacement and cleanup happen in the relaunched processes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validOutput(flagOutput); err != nil {
			return err
		}
		d, err := newDeps()
		if err != nil {
			return err
		}
		rename, _ := cmd.Flags().GetBool("rename")
		initLogging(d.Cfg, cmd)
		return runUpdateCore(cmd.Context(), d, updateCoreOpts{rename: rename})
	},
}

func init() {
	updateCmd.Flags().Bool("rename", false, "Install a build whose file name differs (uses the rename section of the config)")
	rootCmd.AddCommand(updateCmd)
}

type updateCoreOpts struct {
	rename bool
}

// updateReport is the structured form of an update outcome.
type updateReport struct {
	State            string `json:"state" yaml:"state"`
	CurrentVersion   string `json:"current_version,omitempty" yaml:"current_version,omitempty"`
	CandidateVersion string `json:"candidate_version,omitempty" yaml:"candidate_version,omitempty"`
	Reason           string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ChildPID         int    `json:"child_pid,omitempty" yaml:"child_pid,omitempty"`
}

func runUpdateCore(ctx context.Context, d *Deps, opts updateCoreOpts) error {
	if err := d.Cfg.Validate(); err != nil {
		return err
	}
	p := d.Printer
	warnInterrupted(d, time.Now())

	var seq *update.Sequencer
	if opts.rename {
		if d.Cfg.Rename.CurrentName == "" {
			return exitcodes.ValidationErr("--rename needs rename.current_name and rename.future_name in the config")
		}
		seq = update.NewRename(sequencerOptions(d), updateDeps(d), update.Rename{
			CurrentName: d.Cfg.Rename.CurrentName,
			FutureName:  d.Cfg.Rename.FutureName,
		})
	} else {
		seq = update.New(sequencerOptions(d), updateDeps(d))
	}

	if !p.Structured() {
		p.Info(fmt.Sprintf("Checking %s for updates...", d.Cfg.SharedDir))
	}
	out, err := seq.Run(ctx)

	if p.Structured() {
		if verr := p.Value(report(out, err)); verr != nil {
			return verr
		}
	}
	if err != nil {
		if !p.Structured() {
			p.Textf("%s", explain(err, d.Cfg).Format(p.Colors))
		}
		return silentErr{err}
	}
	if p.Structured() {
		return nil
	}

	switch {
	case out.State == update.Exited:
		p.Success(fmt.Sprintf("Handed off to pid %d", out.ChildPID))
	case errors.Is(out.Reason, update.ErrDeclined):
		p.Warn("Update cancelled")
	case errors.Is(out.Reason, update.ErrNotNewer):
		p.Success("Already up to date")
	case errors.Is(out.Reason, update.ErrNoCandidate):
		p.Info("No matching build in the shared directory")
	case out.Reason != nil:
		p.Textf("%s", explain(out.Reason, d.Cfg).Format(p.Colors))
	}
	return nil
}

func report(out update.Outcome, err error) updateReport {
	r := updateReport{State: out.State.String(), ChildPID: out.ChildPID}
	if out.Decision != nil {
		r.CurrentVersion = out.Decision.Current.Version.String()
		r.CandidateVersion = out.Decision.Candidate.Version.String()
	}
	switch {
	case err != nil:
		r.Reason = err.Error()
	case out.Reason != nil:
		r.Reason = out.Reason.Error()
	}
	return r
}
