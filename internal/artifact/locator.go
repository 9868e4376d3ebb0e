package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/simplefx/simplefx-update/internal/buildinfo"
	"github.com/simplefx/simplefx-update/internal/manifest"
)

// DefaultExt is the extension of packaged builds.
const DefaultExt = ".jar"

var ErrNoVersionSuffix = errors.New("file name has no v<major>[.<minor>] suffix")

// Descriptor is one update candidate found in the shared directory.
type Descriptor struct {
	Path       string
	Name       string
	Prefix     string
	MajorMinor string // from the file name, e.g. "v2.10"; empty when absent
	Version    buildinfo.BuildVersion
}

// Status tells why a scan did or did not produce a candidate.
type Status int

const (
	Found Status = iota
	NoMatch
	DirInaccessible
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NoMatch:
		return "no candidate"
	case DirInaccessible:
		return "directory inaccessible"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Selection is the outcome of one scan.
type Selection struct {
	Candidate *Descriptor
	Status    Status
	Skipped   []string // matched names whose version could not be read
	Err       error    // directory error behind DirInaccessible
}

func namePattern(ext string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(.*?)v(\d+)(?:\.(\d+))?` + regexp.QuoteMeta(ext) + `$`)
}

// Prefix strips the trailing "v<major>[.<minor>]<ext>" from a file name,
// e.g. "SimpleFX-v2.0.jar" -> "SimpleFX-".
func Prefix(fileName, ext string) (string, error) {
	m := namePattern(ext).FindStringSubmatch(filepath.Base(fileName))
	if m == nil {
		return "", fmt.Errorf("%s: %w", fileName, ErrNoVersionSuffix)
	}
	return m[1], nil
}

// VersionFromName returns the "v<major>.<minor>" token of a file name.
func VersionFromName(fileName, ext string) (string, error) {
	m := namePattern(ext).FindStringSubmatch(filepath.Base(fileName))
	if m == nil {
		return "", fmt.Errorf("%s: %w", fileName, ErrNoVersionSuffix)
	}
	minor := m[3]
	if minor == "" {
		minor = "0"
	}
	return "v" + m[2] + "." + minor, nil
}

// Locator scans a shared directory for builds of one application.
type Locator struct {
	Dir    string
	Prefix string
	Ext    string
}

// NewLocator derives the name prefix from the running artifact.
func NewLocator(dir, currentArtifact, ext string) (*Locator, error) {
	if ext == "" {
		ext = DefaultExt
	}
	prefix, err := Prefix(currentArtifact, ext)
	if err != nil {
		return nil, err
	}
	return &Locator{Dir: dir, Prefix: prefix, Ext: ext}, nil
}

// Locate picks the highest versioned match. It never fails: a missing
// directory or an empty scan is reported through Selection.Status.
func (l *Locator) Locate(ctx context.Context) Selection {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		log.Warnf("shared directory %s is not accessible: %v", l.Dir, err)
		return Selection{Status: DirInaccessible, Err: err}
	}

	ext := strings.ToLower(l.Ext)
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, l.Prefix) && strings.HasSuffix(strings.ToLower(name), ext) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		log.Debugf("no candidate matching %q in %s", l.Prefix, l.Dir)
		return Selection{Status: NoMatch}
	case 1:
		d := l.describe(matches[0])
		d.MajorMinor, _ = VersionFromName(matches[0], l.Ext)
		return Selection{Candidate: d, Status: Found}
	}

	var (
		best    *Descriptor
		skipped []string
	)
	for _, name := range matches {
		if ctx.Err() != nil {
			break
		}
		v, err := VersionFromName(name, l.Ext)
		if err != nil {
			log.Warnf("skipping %s: %v", name, err)
			skipped = append(skipped, name)
			continue
		}
		// >= keeps the last name among equal versions
		if best == nil || buildinfo.CompareMajorMinor(v, best.MajorMinor) >= 0 {
			best = l.describe(name)
			best.MajorMinor = v
		}
	}
	if best == nil {
		log.Warnf("no candidate in %s had a readable version (%d skipped)", l.Dir, len(skipped))
		return Selection{Status: NoMatch, Skipped: skipped}
	}
	return Selection{Candidate: best, Status: Found, Skipped: skipped}
}

func (l *Locator) describe(name string) *Descriptor {
	return &Descriptor{
		Path:   filepath.Join(l.Dir, name),
		Name:   name,
		Prefix: l.Prefix,
	}
}

// Resolve reads and parses the embedded build label of d.
func Resolve(ctx context.Context, r manifest.Reader, d *Descriptor) error {
	raw, err := r.ImplementationVersion(ctx, d.Path)
	if err != nil {
		return err
	}
	v, err := buildinfo.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	d.Version = v
	return nil
}

// Describe builds a descriptor for an artifact outside of a scan, such as
// the running one.
func Describe(path, ext string) *Descriptor {
	name := filepath.Base(path)
	d := &Descriptor{Path: path, Name: name}
	d.Prefix, _ = Prefix(name, ext)
	d.MajorMinor, _ = VersionFromName(name, ext)
	return d
}
