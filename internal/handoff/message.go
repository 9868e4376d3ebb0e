package handoff

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Mode selects what a relaunched generation does.
type Mode string

const (
	// ModeUpdate: running from staging, replace the old artifact.
	ModeUpdate Mode = "update"
	// ModeRename: like ModeUpdate, but the artifact's file name changes.
	ModeRename Mode = "rename"
	// ModeCleanup: running from the install dir, remove the staged copy.
	ModeCleanup Mode = "cleanup"
)

// Flag is the command-line flag carrying an encoded Message.
const Flag = "handoff"

// RefactorToken prefixes the positional arguments of a rename relay.
const RefactorToken = "REFACTOR"

var ErrInvalid = errors.New("invalid handoff arguments")

// Message is everything one generation tells the next.
type Message struct {
	Mode Mode `json:"mode"`
	// ArtifactPath is the artifact the receiving generation runs from.
	ArtifactPath string `json:"artifact_path,omitempty"`
	// DeletePath is the artifact the receiving generation must delete.
	DeletePath string `json:"delete_path"`
	// InstallDir is where the application lives.
	InstallDir string `json:"install_dir,omitempty"`
	Debug      bool   `json:"debug,omitempty"`
	WorkDir    string `json:"work_dir,omitempty"`
	StatusFile string `json:"status_file,omitempty"`
	OldName    string `json:"old_name,omitempty"`
	NewName    string `json:"new_name,omitempty"`
	ParentPID  int    `json:"parent_pid,omitempty"`
	Version    string `json:"version,omitempty"`
	// Launch prefixes the artifact path when relaunching, e.g. java -jar.
	Launch []string `json:"launch,omitempty"`
	// StateDir holds the in-flight relay record.
	StateDir string `json:"state_dir,omitempty"`
}

// IsUpdate is true for the phase that replaces the installed artifact.
func (m Message) IsUpdate() bool { return m.Mode == ModeUpdate || m.Mode == ModeRename }

// Validate checks the fields each mode depends on.
func (m Message) Validate() error {
	switch m.Mode {
	case ModeUpdate, ModeCleanup:
	case ModeRename:
		if m.OldName == "" || m.NewName == "" {
			return fmt.Errorf("%w: rename requires old and new names", ErrInvalid)
		}
		if !IsFileName(m.OldName) || !IsFileName(m.NewName) {
			return fmt.Errorf("%w: rename names must be plain file names, got %q and %q", ErrInvalid, m.OldName, m.NewName)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, m.Mode)
	}
	if m.DeletePath == "" {
		return fmt.Errorf("%w: missing path to delete", ErrInvalid)
	}
	if m.IsUpdate() && m.InstallDir == "" {
		return fmt.Errorf("%w: missing install directory", ErrInvalid)
	}
	return nil
}

// IsFileName reports whether n names a file without any directory part.
func IsFileName(n string) bool {
	return n != "" && n != "." && n != ".." && filepath.Base(n) == n && !strings.ContainsAny(n, `/\`)
}

// Encode serializes m into a single command-line safe argument.
func Encode(m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode.
func Decode(s string) (Message, error) {
	var m Message
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return m, m.Validate()
}

// Args returns the arguments for the next generation's command line.
func (m Message) Args() ([]string, error) {
	enc, err := Encode(m)
	if err != nil {
		return nil, err
	}
	return []string{"handoff", "--" + Flag + "=" + enc}, nil
}

// LegacyArgs renders m in the positional layout older builds understand:
//
//	[deletePath, isUpdate, debug, workDir, (statusFile)]
//	["REFACTOR", deletePath, isUpdate, debug, workDir, oldName, newName, (statusFile)]
func (m Message) LegacyArgs() []string {
	var args []string
	if m.Mode == ModeRename {
		args = append(args, RefactorToken)
	}
	args = append(args,
		m.DeletePath,
		strconv.FormatBool(m.IsUpdate()),
		strconv.FormatBool(m.Debug),
		m.WorkDir,
	)
	if m.Mode == ModeRename {
		args = append(args, m.OldName, m.NewName)
	}
	if m.StatusFile != "" {
		args = append(args, m.StatusFile)
	}
	return args
}

// ParseLegacy reads the positional layout. The install directory is not
// part of it; callers fill it in from their own location.
func ParseLegacy(args []string) (Message, error) {
	var m Message
	rename := len(args) > 0 && args[0] == RefactorToken
	if rename {
		args = args[1:]
	}

	lo, hi := 4, 5
	if rename {
		lo, hi = 6, 7
	}
	if len(args) < lo || len(args) > hi {
		return m, fmt.Errorf("%w: expected %d-%d positional arguments, got %d", ErrInvalid, lo, hi, len(args))
	}

	isUpdate, err := strconv.ParseBool(args[1])
	if err != nil {
		return m, fmt.Errorf("%w: is-update %q: %v", ErrInvalid, args[1], err)
	}
	debug, err := strconv.ParseBool(args[2])
	if err != nil {
		return m, fmt.Errorf("%w: debug %q: %v", ErrInvalid, args[2], err)
	}

	m.DeletePath = args[0]
	m.Debug = debug
	m.WorkDir = args[3]
	rest := args[4:]
	switch {
	case !isUpdate:
		m.Mode = ModeCleanup
	case rename:
		m.Mode = ModeRename
	default:
		m.Mode = ModeUpdate
	}
	if rename {
		m.OldName, m.NewName = rest[0], rest[1]
		rest = rest[2:]
	}
	if len(rest) == 1 {
		m.StatusFile = rest[0]
	}
	if m.DeletePath == "" {
		return m, fmt.Errorf("%w: missing path to delete", ErrInvalid)
	}
	return m, nil
}
