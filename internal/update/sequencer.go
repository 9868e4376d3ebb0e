package update

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/simplefx/simplefx-update/internal/artifact"
	"github.com/simplefx/simplefx-update/internal/buildinfo"
	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/handoff"
	"github.com/simplefx/simplefx-update/internal/logging"
	"github.com/simplefx/simplefx-update/internal/manifest"
	"github.com/simplefx/simplefx-update/internal/process"
	"github.com/simplefx/simplefx-update/internal/statusfile"
)

const defaultStartedTimeout = 5 * time.Second

// Options configures a Sequencer.
type Options struct {
	AppName string
	// SharedDir is scanned for newer builds.
	SharedDir string
	Ext       string
	// CurrentArtifact is the path of the running build.
	CurrentArtifact string
	// CurrentVersion, when set, is used instead of reading the running
	// artifact's label.
	CurrentVersion string
	StagingRoot    string
	StateDir       string
	Launch         []string
	Debug          bool
	LogDir         string
	// StartedTimeout bounds the wait for the indicator's STARTED token.
	StartedTimeout time.Duration
}

// Deps are the collaborators of a Sequencer.
type Deps struct {
	Reader    manifest.Reader
	Confirmer Confirmer
	Spawner   process.Spawner
	Splash    SplashLauncher // optional
	Host      Host
}

type candidateFunc func(ctx context.Context, current *artifact.Descriptor) (*artifact.Descriptor, error)

// Sequencer drives one update attempt from the first generation:
// check, confirm, stage, relaunch and exit.
type Sequencer struct {
	opts Options
	deps Deps
	mode handoff.Mode

	candidate candidateFunc
	names     func(d *Decision) (string, string)

	mu      sync.Mutex
	state   State
	history []State
	current *artifact.Descriptor
}

// New returns a Sequencer that looks for newer builds sharing the running
// artifact's name prefix.
func New(opts Options, deps Deps) *Sequencer {
	if opts.Ext == "" {
		opts.Ext = artifact.DefaultExt
	}
	if opts.StartedTimeout <= 0 {
		opts.StartedTimeout = defaultStartedTimeout
	}
	if deps.Reader == nil {
		deps.Reader = manifest.ForArtifact(opts.Ext, opts.Launch)
	}
	s := &Sequencer{opts: opts, deps: deps, mode: handoff.ModeUpdate, state: Idle, history: []State{Idle}}
	s.candidate = s.locateCandidate
	return s
}

// State returns the current state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// History returns every state entered so far, starting with Idle.
func (s *Sequencer) History() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.history...)
}

// Current is the running build as resolved by the last Check.
func (s *Sequencer) Current() *artifact.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Sequencer) enter(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.history = append(s.history, st)
	s.mu.Unlock()
	log.Debugf("update state %s -> %s", prev, st)
}

func (s *Sequencer) abort(reason error) {
	log.Infof("update aborted: %v", reason)
	s.enter(Aborted)
}

// Check resolves the running build and the best candidate and reports a
// Decision when the candidate is newer. Any other outcome moves the
// sequence to Aborted and returns the reason; failures to read versions
// never produce a Decision.
func (s *Sequencer) Check(ctx context.Context) (*Decision, error) {
	if st := s.State(); st != Idle {
		return nil, fmt.Errorf("%w: state %s", ErrAlreadyRunning, st)
	}
	s.enter(Checking)

	d, err := s.check(ctx)
	if err != nil {
		s.abort(err)
		return nil, err
	}
	return d, nil
}

func (s *Sequencer) check(ctx context.Context) (*Decision, error) {
	current := artifact.Describe(s.opts.CurrentArtifact, s.opts.Ext)
	s.mu.Lock()
	s.current = current
	s.mu.Unlock()

	if err := s.resolveCurrent(ctx, current); err != nil {
		return nil, fmt.Errorf("%w: running build %s: %v", ErrUnreadableVersion, current.Name, err)
	}

	candidate, err := s.candidate(ctx, current)
	if err != nil {
		return nil, err
	}
	if filepath.Clean(candidate.Path) == filepath.Clean(current.Path) {
		return nil, ErrNotNewer
	}
	if err := artifact.Resolve(ctx, s.deps.Reader, candidate); err != nil {
		return nil, fmt.Errorf("%w: candidate %s: %v", ErrUnreadableVersion, candidate.Name, err)
	}

	if !candidate.Version.NewerThan(current.Version) {
		log.Infof("%s is not newer than running %s", candidate.Version, current.Version)
		return nil, ErrNotNewer
	}
	log.Infof("update available: %s -> %s", current.Version, candidate.Version)
	return &Decision{Current: current, Candidate: candidate}, nil
}

func (s *Sequencer) resolveCurrent(ctx context.Context, current *artifact.Descriptor) error {
	if s.opts.CurrentVersion == "" {
		return artifact.Resolve(ctx, s.deps.Reader, current)
	}
	v, err := buildinfo.Parse(s.opts.CurrentVersion)
	if err != nil {
		return err
	}
	current.Version = v
	return nil
}

func (s *Sequencer) locateCandidate(ctx context.Context, current *artifact.Descriptor) (*artifact.Descriptor, error) {
	loc, err := artifact.NewLocator(s.opts.SharedDir, current.Path, s.opts.Ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCandidate, err)
	}
	sel := loc.Locate(ctx)
	switch sel.Status {
	case artifact.DirInaccessible:
		return nil, fmt.Errorf("%w: %v", ErrSharedDirUnavailable, sel.Err)
	case artifact.NoMatch:
		return nil, ErrNoCandidate
	}
	return sel.Candidate, nil
}

// IsNewerVersionAvailable runs Check and reports only whether an update
// exists.
func (s *Sequencer) IsNewerVersionAvailable(ctx context.Context) bool {
	d, err := s.Check(ctx)
	return err == nil && d != nil
}

// Outcome is how Run ended.
type Outcome struct {
	State    State
	Decision *Decision
	// Reason is set when the sequence aborted without failing.
	Reason   error
	ChildPID int
}

// Run performs the whole first-generation sequence. Declines and "nothing
// to do" results abort quietly and return a nil error; staging and spawn
// failures return an error. On success the host is told to exit with 0.
func (s *Sequencer) Run(ctx context.Context) (Outcome, error) {
	d, err := s.Check(ctx)
	if err != nil {
		if errors.Is(err, ErrAlreadyRunning) {
			return Outcome{State: s.State()}, err
		}
		return Outcome{State: Aborted, Reason: err}, nil
	}

	s.enter(AwaitingConfirmation)
	ok, err := s.confirm(ctx, d)
	if err != nil {
		log.Warnf("confirmation failed: %v", err)
		ok = false
	}
	d.UserAccepted = ok
	if !ok {
		s.abort(ErrDeclined)
		return Outcome{State: Aborted, Decision: d, Reason: ErrDeclined}, nil
	}

	s.enter(PreparingHandoff)
	cmd, msg, stageDir, err := s.prepare(ctx, d)
	if err != nil {
		s.abort(err)
		return Outcome{State: Aborted, Decision: d}, exitcodes.ProcessWrap("failed to stage update", err)
	}

	s.enter(Relaunching)
	pid, err := s.deps.Spawner.Start(ctx, cmd)
	if err != nil {
		log.Errorf("relaunch of %s failed: %v", cmd, err)
		if rmErr := os.RemoveAll(stageDir); rmErr != nil {
			log.Warnf("remove staging dir %s: %v", stageDir, rmErr)
		}
		s.finishIndicator(msg.StatusFile)
		s.abort(err)
		return Outcome{State: Aborted, Decision: d}, exitcodes.ProcessWrap("failed to start updated build", err)
	}

	if s.opts.StateDir != "" {
		rec := &Record{
			StartedAt:   time.Now(),
			FromPath:    d.Current.Path,
			FromVersion: d.Current.Version.Raw,
			ToPath:      d.Candidate.Path,
			ToVersion:   d.Candidate.Version.Raw,
			StatusFile:  msg.StatusFile,
		}
		if err := SaveRecord(s.opts.StateDir, rec); err != nil {
			log.Warnf("save update record: %v", err)
		}
	}

	s.enter(Exited)
	log.Infof("handed off to pid %d, exiting", pid)
	s.deps.Host.Exit(exitcodes.Success)
	return Outcome{State: Exited, Decision: d, ChildPID: pid}, nil
}

func (s *Sequencer) confirm(ctx context.Context, d *Decision) (bool, error) {
	if s.deps.Confirmer == nil {
		return false, errors.New("no way to ask for confirmation")
	}
	return s.deps.Confirmer.Confirm(ctx, s.prompt(d))
}

func (s *Sequencer) prompt(d *Decision) Prompt {
	return Prompt{
		AppName:          s.opts.AppName,
		CurrentVersion:   d.Current.Version.String(),
		CandidateVersion: d.Candidate.Version.String(),
		CurrentName:      d.Current.Name,
		CandidateName:    d.Candidate.Name,
	}
}

// prepare closes the splash, starts the indicator, stages a verified copy of
// the candidate and builds the second generation's command line.
func (s *Sequencer) prepare(ctx context.Context, d *Decision) (process.Command, handoff.Message, string, error) {
	var msg handoff.Message
	if s.deps.Host != nil {
		s.deps.Host.CloseSplash()
	}
	statusPath := s.launchIndicator(ctx)

	if err := os.MkdirAll(s.opts.StagingRoot, 0o755); err != nil {
		return process.Command{}, msg, "", err
	}
	stageDir, err := os.MkdirTemp(s.opts.StagingRoot, "stage-*")
	if err != nil {
		return process.Command{}, msg, "", err
	}
	staged := filepath.Join(stageDir, d.Candidate.Name)
	if err := copyVerified(d.Candidate.Path, staged); err != nil {
		_ = os.RemoveAll(stageDir)
		s.finishIndicator(statusPath)
		return process.Command{}, msg, "", err
	}

	installDir := filepath.Dir(d.Current.Path)
	workDir := s.opts.LogDir
	if workDir == "" {
		workDir = installDir
	}
	msg = handoff.Message{
		Mode:         s.mode,
		ArtifactPath: staged,
		DeletePath:   d.Current.Path,
		InstallDir:   installDir,
		Debug:        s.opts.Debug,
		WorkDir:      workDir,
		StatusFile:   statusPath,
		ParentPID:    os.Getpid(),
		Version:      d.Candidate.Version.Raw,
		Launch:       s.opts.Launch,
		StateDir:     s.opts.StateDir,
	}
	if s.names != nil {
		msg.OldName, msg.NewName = s.names(d)
	}
	args, err := msg.Args()
	if err != nil {
		_ = os.RemoveAll(stageDir)
		s.finishIndicator(statusPath)
		return process.Command{}, msg, "", err
	}

	cmd := process.LaunchCommand(s.opts.Launch, staged, args)
	cmd.Dir = stageDir
	if s.opts.Debug {
		cmd.LogFile = logging.Path(workDir)
	}
	return cmd, msg, stageDir, nil
}

// launchIndicator starts the updating indicator and waits briefly for it to
// confirm. The relay works without one, so failures only log.
func (s *Sequencer) launchIndicator(ctx context.Context) string {
	if s.deps.Splash == nil {
		return ""
	}
	path, err := s.deps.Splash.Launch(ctx)
	if err != nil {
		log.Warnf("updating indicator not started: %v", err)
		return ""
	}
	wctx, cancel := context.WithTimeout(ctx, s.opts.StartedTimeout)
	defer cancel()
	if err := statusfile.Open(path).WaitFor(wctx, statusfile.Started); err != nil {
		log.Warnf("updating indicator did not report %s: %v", statusfile.Started, err)
	}
	return path
}

func (s *Sequencer) finishIndicator(path string) {
	if path == "" {
		return
	}
	if err := statusfile.Open(path).Finish(); err != nil {
		log.Warnf("close updating indicator: %v", err)
	}
}
