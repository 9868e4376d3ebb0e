package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/handoff"
	"github.com/simplefx/simplefx-update/internal/logging"
	"github.com/simplefx/simplefx-update/internal/process"
	"github.com/simplefx/simplefx-update/internal/retry"
	"github.com/simplefx/simplefx-update/internal/statusfile"
)

const (
	defaultParentTimeout = 30 * time.Second
	parentPollInterval   = 100 * time.Millisecond
)

// Relay runs the later generations of an update. The second generation
// runs from staging and replaces the installed artifact; the third runs
// from the install directory and removes the staged copy.
type Relay struct {
	Spawner process.Spawner
	Host    Host
	Deleter *retry.Deleter
	// ParentTimeout bounds the wait for the previous generation to exit.
	ParentTimeout time.Duration
	// Self is used when the message does not name the running artifact.
	Self string
}

// Result describes what a generation did.
type Result struct {
	Mode      handoff.Mode
	Installed string // artifact now in the install directory
	ChildPID  int
	Attempts  int // delete attempts spent on the old artifact
	// Exited is true when this generation handed off and asked the host
	// to exit.
	Exited bool
}

// Handle performs the work msg asks of this generation.
func (r *Relay) Handle(ctx context.Context, msg handoff.Message) (Result, error) {
	if err := msg.Validate(); err != nil {
		return Result{Mode: msg.Mode}, exitcodes.WrapError(exitcodes.InvalidArgs, "invalid handoff", err)
	}
	log.WithFields(log.Fields{"mode": msg.Mode, "delete": msg.DeletePath}).Info("relay generation started")

	if err := r.waitParent(ctx, msg.ParentPID); err != nil {
		// the delete retry still covers a slow exit
		log.Warnf("previous generation: %v", err)
	}

	if msg.IsUpdate() {
		return r.replace(ctx, msg)
	}
	return r.cleanup(ctx, msg)
}

func (r *Relay) replace(ctx context.Context, msg handoff.Message) (Result, error) {
	res := Result{Mode: msg.Mode}
	self, err := r.self(msg)
	if err != nil {
		r.finish(msg)
		return res, exitcodes.PreconditionWrap("cannot locate running artifact", err)
	}
	if info, err := os.Stat(msg.InstallDir); err != nil || !info.IsDir() {
		r.finish(msg)
		return res, exitcodes.PreconditionErrorf("install directory %s is not usable", msg.InstallDir)
	}

	name := filepath.Base(self)
	if msg.Mode == handoff.ModeRename {
		name = msg.NewName
	}
	dest := filepath.Join(msg.InstallDir, name)

	// The full copy lands in the install directory before the old
	// artifact is touched.
	tempPath, err := writeVerified(self, dest)
	if err != nil {
		r.fallback(ctx, msg)
		return res, exitcodes.ProcessWrap("failed to copy update into install directory", err)
	}

	attempts, err := r.deleter().Remove(ctx, msg.DeletePath)
	res.Attempts = attempts
	if err != nil {
		_ = os.Remove(tempPath)
		r.fallback(ctx, msg)
		return res, exitcodes.ProcessWrap("failed to remove old artifact", err)
	}
	if _, err := r.deleter().Rename(ctx, tempPath, dest); err != nil {
		// The old build is gone and the verified copy is the only runnable
		// one left, so it is started where it lies.
		log.Errorf("install %s: %v; starting %s instead", dest, err, tempPath)
		dest = tempPath
	} else {
		log.Infof("installed %s (old %s removed after %d attempts)", dest, msg.DeletePath, attempts)
	}
	res.Installed = dest

	next := handoff.Message{
		Mode:         handoff.ModeCleanup,
		ArtifactPath: dest,
		DeletePath:   self,
		InstallDir:   msg.InstallDir,
		Debug:        msg.Debug,
		WorkDir:      msg.WorkDir,
		StatusFile:   msg.StatusFile,
		ParentPID:    os.Getpid(),
		Version:      msg.Version,
		Launch:       msg.Launch,
		StateDir:     msg.StateDir,
	}
	pid, err := r.spawn(ctx, next, dest)
	if err != nil {
		r.finish(msg)
		return res, exitcodes.ProcessWrap("failed to start installed build", err)
	}
	res.ChildPID = pid
	res.Exited = true
	r.Host.Exit(exitcodes.Success)
	return res, nil
}

// fallback relaunches the old artifact when the replacement could not be
// put in place, so the user is not left without a running application.
func (r *Relay) fallback(ctx context.Context, msg handoff.Message) {
	defer r.finish(msg)
	if _, err := os.Stat(msg.DeletePath); err != nil {
		log.Errorf("old artifact %s is gone, nothing to fall back to", msg.DeletePath)
		return
	}
	cmd := process.LaunchCommand(msg.Launch, msg.DeletePath, nil)
	cmd.Dir = msg.InstallDir
	if _, err := r.Spawner.Start(ctx, cmd); err != nil {
		log.Errorf("relaunch of old artifact failed: %v", err)
		return
	}
	log.Warnf("update failed, relaunched %s", msg.DeletePath)
	if msg.StateDir != "" {
		_ = ClearRecord(msg.StateDir)
	}
}

func (r *Relay) cleanup(ctx context.Context, msg handoff.Message) (Result, error) {
	res := Result{Mode: msg.Mode, Installed: msg.ArtifactPath}
	var merr *multierror.Error

	attempts, err := r.deleter().Remove(ctx, msg.DeletePath)
	res.Attempts = attempts
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	stageDir := filepath.Dir(msg.DeletePath)
	if err == nil && isStageDir(stageDir) {
		if entries, rerr := os.ReadDir(stageDir); rerr == nil && len(entries) == 0 {
			if _, err := r.deleter().RemoveDir(ctx, stageDir); err != nil {
				merr = multierror.Append(merr, err)
			}
		} else if rerr == nil {
			log.Warnf("staging directory %s is not empty, leaving it", stageDir)
		}
	}

	if msg.StateDir != "" {
		if err := ClearRecord(msg.StateDir); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("clear update record: %w", err))
		}
	}
	if msg.StatusFile != "" {
		if err := statusfile.Open(msg.StatusFile).Finish(); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("signal %s: %w", statusfile.Finished, err))
		}
	}

	if err := merr.ErrorOrNil(); err != nil {
		// the update itself is installed; leftovers only waste space
		log.Warnf("cleanup incomplete: %v", err)
		return res, err
	}
	log.Infof("update to %s complete", msg.ArtifactPath)
	return res, nil
}

func (r *Relay) spawn(ctx context.Context, next handoff.Message, artifactPath string) (int, error) {
	args, err := next.Args()
	if err != nil {
		return 0, err
	}
	cmd := process.LaunchCommand(next.Launch, artifactPath, args)
	cmd.Dir = next.InstallDir
	if next.Debug && next.WorkDir != "" {
		cmd.LogFile = logging.Path(next.WorkDir)
	}
	return r.Spawner.Start(ctx, cmd)
}

func (r *Relay) self(msg handoff.Message) (string, error) {
	path := msg.ArtifactPath
	if path == "" {
		path = r.Self
	}
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", err
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		path = exe
	}
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Relay) waitParent(ctx context.Context, pid int) error {
	if pid <= 0 || pid == os.Getpid() {
		return nil
	}
	timeout := r.ParentTimeout
	if timeout <= 0 {
		timeout = defaultParentTimeout
	}
	return process.WaitExit(ctx, pid, parentPollInterval, timeout)
}

func (r *Relay) deleter() *retry.Deleter {
	if r.Deleter == nil {
		r.Deleter = retry.NewDeleter(0, 0, 0)
	}
	return r.Deleter
}

// finish closes the updating indicator whatever the outcome.
func (r *Relay) finish(msg handoff.Message) {
	if msg.StatusFile == "" {
		return
	}
	if err := statusfile.Open(msg.StatusFile).Finish(); err != nil {
		log.Warnf("close updating indicator: %v", err)
	}
}

func isStageDir(dir string) bool {
	return strings.HasPrefix(filepath.Base(dir), "stage-")
}
