package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/simplefx/simplefx-update/internal/config"
	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/logging"
	"github.com/simplefx/simplefx-update/internal/manifest"
	"github.com/simplefx/simplefx-update/internal/retry"
	ui "github.com/simplefx/simplefx-update/internal/ui"
	"github.com/simplefx/simplefx-update/internal/update"
)

// silentErr carries an exit code without printing the error again; the
// command has already reported it.
type silentErr struct{ err error }

func (e silentErr) Error() string { return e.err.Error() }
func (e silentErr) Unwrap() error { return e.err }

// getPrinter returns a UI printer bound to the current --output flag.
func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

// readerFor picks how build labels are read.
func readerFor(cfg config.Config) manifest.Reader {
	switch cfg.MetadataSource {
	case "manifest":
		return manifest.ZipReader{}
	case "exec":
		return manifest.ExecReader{Launch: cfg.Launch()}
	default:
		return manifest.ForArtifact(cfg.ArtifactExt, cfg.Launch())
	}
}

// sequencerOptions maps config and the running build onto update.Options.
func sequencerOptions(d *Deps) update.Options {
	opts := update.Options{
		AppName:         d.Cfg.AppName,
		SharedDir:       d.Cfg.SharedDir,
		Ext:             d.Cfg.ArtifactExt,
		CurrentArtifact: d.Self,
		StagingRoot:     d.Cfg.StagingDir,
		StateDir:        d.Cfg.StateDir,
		Launch:          d.Cfg.Launch(),
		Debug:           d.Cfg.Debug,
		LogDir:          d.Cfg.LogDir,
	}
	// The running executable knows its own label.
	if d.Self == d.Exe && ImplementationVersion != "" {
		opts.CurrentVersion = ImplementationVersion
	}
	return opts
}

func updateDeps(d *Deps) update.Deps {
	return update.Deps{
		Reader: d.Reader,
		Confirmer: &promptConfirmer{
			prompter: d.Prompter,
			printer:  d.Printer,
			yes:      flagYes,
		},
		Spawner: d.Spawner,
		Splash:  d.Splash,
		Host:    d.Host,
	}
}

func newDeleter(cfg config.Config) *retry.Deleter {
	return retry.NewDeleter(cfg.Retry.MaxAttempts, cfg.Retry.InitialInterval, cfg.Retry.MaxInterval)
}

// logOptions routes logs for an interactive command, tagged with the
// command name. Debug output goes to stderr and, when a log dir is
// configured, to the shared relay log.
func logOptions(cfg config.Config, cmd *cobra.Command) logging.Options {
	opts := logging.Options{Debug: cfg.Debug, Generation: cmd.Name()}
	if cfg.Debug {
		opts.Console = os.Stderr
		opts.Dir = cfg.LogDir
	}
	return opts
}

func initLogging(cfg config.Config, cmd *cobra.Command) {
	if err := logging.Init(logOptions(cfg, cmd)); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
	}
}

// warnInterrupted reports a relay that started but never finished.
func warnInterrupted(d *Deps, now time.Time) {
	if d.Cfg.StateDir == "" {
		return
	}
	rec, err := update.LoadRecord(d.Cfg.StateDir)
	if err != nil || rec == nil || !rec.IsStale(now) {
		return
	}
	d.Printer.Warn(fmt.Sprintf("A previous update to %s (started %s) did not finish",
		rec.ToVersion, rec.StartedAt.Format(time.RFC3339)))
	if err := update.ClearRecord(d.Cfg.StateDir); err != nil {
		d.Printer.Warn(fmt.Sprintf("Could not clear update record: %v", err))
	}
}

// explain turns an update failure into a user-facing message.
func explain(err error, cfg config.Config) ui.ErrorMessage {
	switch {
	case errors.Is(err, update.ErrSharedDirUnavailable):
		return ui.ErrorMessage{
			Problem: "Shared directory is not reachable",
			Causes:  []string{err.Error()},
			Actions: []string{
				fmt.Sprintf("Check that %s is mounted and readable", cfg.SharedDir),
				"Override it with --shared-dir or SIMPLEFX_SHARED_DIR",
			},
		}
	case errors.Is(err, update.ErrUnreadableVersion):
		return ui.ErrorMessage{
			Problem: "Build version could not be read",
			Causes:  []string{err.Error()},
			Actions: []string{"Check that the build carries an Implementation-Version label"},
		}
	case errors.Is(err, update.ErrRenamePrecondition):
		return ui.ErrorMessage{
			Problem: "Rename update does not apply to this installation",
			Causes:  []string{err.Error()},
			Actions: []string{"Check rename.current_name and rename.future_name in " + config.FileName},
		}
	default:
		return ui.ErrorMessage{
			Problem: "Update failed",
			Causes:  []string{err.Error()},
			Actions: []string{"Re-run with --debug and inspect " + logging.FileName},
		}
	}
}

func validOutput(format string) error {
	switch strings.ToLower(format) {
	case "text", "json", "yaml":
		return nil
	}
	return exitcodes.InvalidArgsErrorf("unsupported output format %q (want text, json or yaml)", format)
}
