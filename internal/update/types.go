package update

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/simplefx/simplefx-update/internal/artifact"
)

// State is a step of the update sequence.
type State int

const (
	Idle State = iota
	Checking
	AwaitingConfirmation
	PreparingHandoff
	Relaunching
	Exited
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Checking:
		return "CHECKING"
	case AwaitingConfirmation:
		return "AWAITING_USER_CONFIRMATION"
	case PreparingHandoff:
		return "PREPARING_HANDOFF"
	case Relaunching:
		return "RELAUNCHING"
	case Exited:
		return "EXITED"
	case Aborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool { return s == Exited || s == Aborted }

// Reasons a check ends without an update.
var (
	ErrNoCandidate          = errors.New("no update candidate in shared directory")
	ErrSharedDirUnavailable = errors.New("shared directory is not accessible")
	ErrUnreadableVersion    = errors.New("build version could not be read")
	ErrNotNewer             = errors.New("installed build is up to date")
	ErrRenamePrecondition   = errors.New("rename precondition not met")
	ErrDeclined             = errors.New("update declined")
	ErrAlreadyRunning       = errors.New("update sequence already started")
)

// Decision pairs the running build with the candidate that replaces it.
type Decision struct {
	Current      *artifact.Descriptor
	Candidate    *artifact.Descriptor
	UserAccepted bool
}

// Prompt is what the user is asked to confirm.
type Prompt struct {
	AppName          string
	CurrentVersion   string
	CandidateVersion string
	CurrentName      string
	CandidateName    string
}

// Text renders the confirmation question.
func (p Prompt) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "A newer version of %s is available.\n", p.AppName)
	fmt.Fprintf(&b, "  Installed: %s\n", p.CurrentVersion)
	fmt.Fprintf(&b, "  Available: %s\n", p.CandidateVersion)
	if p.CurrentName != p.CandidateName {
		fmt.Fprintf(&b, "  File:      %s -> %s\n", p.CurrentName, p.CandidateName)
	}
	b.WriteString("Update now?")
	return b.String()
}

// Confirmer asks the user whether to install a candidate.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

// Host is the running application as seen by the sequence.
type Host interface {
	// CloseSplash hides any startup window before relaunching.
	CloseSplash()
	// Exit terminates the current generation.
	Exit(code int)
}

// SplashLauncher starts the detached updating indicator and returns the
// status file it watches.
type SplashLauncher interface {
	Launch(ctx context.Context) (string, error)
}

// CheckResult is the user-facing summary of a check.
type CheckResult struct {
	CurrentVersion   string `json:"current_version" yaml:"current_version"`
	CurrentPath      string `json:"current_path" yaml:"current_path"`
	CandidateVersion string `json:"candidate_version,omitempty" yaml:"candidate_version,omitempty"`
	CandidatePath    string `json:"candidate_path,omitempty" yaml:"candidate_path,omitempty"`
	UpdateAvailable  bool   `json:"update_available" yaml:"update_available"`
	Reason           string `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Summarize turns the outcome of Check into a CheckResult.
func Summarize(current *artifact.Descriptor, d *Decision, err error) CheckResult {
	var r CheckResult
	if current != nil {
		r.CurrentPath = current.Path
		r.CurrentVersion = versionText(current)
	}
	if d != nil {
		r.CurrentVersion = versionText(d.Current)
		r.CurrentPath = d.Current.Path
		r.CandidateVersion = versionText(d.Candidate)
		r.CandidatePath = d.Candidate.Path
	}
	r.UpdateAvailable = d != nil && err == nil
	if err != nil {
		r.Reason = err.Error()
	}
	return r
}

func versionText(d *artifact.Descriptor) string {
	if d == nil {
		return ""
	}
	if d.Version.Raw == "" {
		return d.MajorMinor
	}
	return d.Version.String()
}
