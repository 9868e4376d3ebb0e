package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/simplefx/simplefx-update/internal/artifact"
	"github.com/simplefx/simplefx-update/internal/handoff"
)

// Rename names an artifact whose file name changes in the next release.
type Rename struct {
	CurrentName string
	FutureName  string
}

// NewRename returns a Sequencer that installs r.FutureName from the shared
// directory in place of the running r.CurrentName. The same version rules
// apply; the relay deletes the old name and installs under the new one.
func NewRename(opts Options, deps Deps, r Rename) *Sequencer {
	s := New(opts, deps)
	s.mode = handoff.ModeRename
	s.candidate = r.candidate(opts.SharedDir, opts.Ext)
	s.names = func(*Decision) (string, string) { return r.CurrentName, r.FutureName }
	return s
}

func (r Rename) candidate(sharedDir, ext string) candidateFunc {
	return func(_ context.Context, current *artifact.Descriptor) (*artifact.Descriptor, error) {
		if r.CurrentName == "" || r.FutureName == "" {
			return nil, fmt.Errorf("%w: current and future names are required", ErrRenamePrecondition)
		}
		if current.Name != r.CurrentName {
			return nil, fmt.Errorf("%w: running %s, expected %s", ErrRenamePrecondition, current.Name, r.CurrentName)
		}
		future := filepath.Join(sharedDir, r.FutureName)
		info, err := os.Stat(future)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenamePrecondition, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: %s is a directory", ErrRenamePrecondition, future)
		}
		return artifact.Describe(future, ext), nil
	}
}
