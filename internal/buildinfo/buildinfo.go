package buildinfo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/mod/semver"
)

// Timestamp layouts accepted for the build identifier, most specific first.
var timestampLayouts = []string{
	"20060102150405",
	"200601021504",
	"20060102",
}

var (
	ErrNoDash      = errors.New("build label has no dash-delimited build id")
	ErrNoSpace     = errors.New("build label has no space-delimited version token")
	ErrBadSegments = errors.New("build id segment out of range")
	ErrNoVersion   = errors.New("build label has no v<major>.<minor> token")
)

// BuildVersion is the parsed form of an Implementation-Version label such as
// "simplefx-1842-202406010000 v2.0 June 1 2024".
type BuildVersion struct {
	Major     int
	Minor     int
	BuildID   string
	Timestamp time.Time
	Date      string // trailing "<Month> <Day> <Year>", display only
	Raw       string
}

// Parse splits a raw build label. The build id is the text after the last
// dash and before the first space; it must be a timestamp.
func Parse(raw string) (BuildVersion, error) {
	v := BuildVersion{Raw: raw}
	label := strings.TrimSpace(raw)

	dash := strings.LastIndex(label, "-")
	if dash < 0 {
		return v, ErrNoDash
	}
	space := strings.Index(label, " ")
	if space < 0 {
		return v, ErrNoSpace
	}
	if dash+1 > space {
		return v, fmt.Errorf("%w: last dash at %d, first space at %d", ErrBadSegments, dash, space)
	}

	v.BuildID = label[dash+1 : space]
	ts, err := parseTimestamp(v.BuildID)
	if err != nil {
		return v, err
	}
	v.Timestamp = ts

	fields := strings.Fields(label[space:])
	idx := -1
	for i, f := range fields {
		if strings.HasPrefix(f, "v") || strings.HasPrefix(f, "V") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return v, ErrNoVersion
	}
	major, minor, err := ParseMajorMinor(fields[idx])
	if err != nil {
		return v, err
	}
	v.Major, v.Minor = major, minor
	v.Date = strings.Join(fields[idx+1:], " ")
	return v, nil
}

// ParseMajorMinor parses "v<major>" or "v<major>.<minor>".
func ParseMajorMinor(token string) (int, int, error) {
	tok := "v" + strings.TrimLeft(token, "vV")
	if !semver.IsValid(tok) || semver.Prerelease(tok) != "" || semver.Build(tok) != "" {
		return 0, 0, fmt.Errorf("invalid version token %q", token)
	}
	parts := strings.SplitN(strings.TrimPrefix(tok, "v"), ".", 3)
	if len(parts) > 2 {
		return 0, 0, fmt.Errorf("invalid version token %q: expected v<major>.<minor>", token)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid major in %q: %w", token, err)
	}
	minor := 0
	if len(parts) == 2 {
		if minor, err = strconv.Atoi(parts[1]); err != nil {
			return 0, 0, fmt.Errorf("invalid minor in %q: %w", token, err)
		}
	}
	return major, minor, nil
}

func parseTimestamp(id string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if len(id) != len(layout) {
			continue
		}
		if ts, err := time.Parse(layout, id); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("build id %q is not a yyyyMMddHHmm timestamp", id)
}

// MajorMinor returns the canonical semver form, e.g. "v2.0".
func (v BuildVersion) MajorMinor() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// CompareMajorMinor compares two version tokens numerically per component.
func CompareMajorMinor(a, b string) int {
	return semver.Compare("v"+strings.TrimLeft(a, "vV"), "v"+strings.TrimLeft(b, "vV"))
}

// NewerThan reports whether v is a newer build than other: either the build
// timestamp is later or the major.minor is greater.
func (v BuildVersion) NewerThan(other BuildVersion) bool {
	if v.Timestamp.After(other.Timestamp) {
		return true
	}
	return CompareMajorMinor(v.MajorMinor(), other.MajorMinor()) > 0
}

// String renders the version for prompts, e.g. "v2.0 (June 1 2024)".
func (v BuildVersion) String() string {
	if v.Date != "" {
		return fmt.Sprintf("%s (%s)", v.MajorMinor(), v.Date)
	}
	return fmt.Sprintf("%s (%s)", v.MajorMinor(), v.Timestamp.Format("2006-01-02 15:04"))
}

// IsNewer compares two raw labels and fails closed: a label that cannot be
// parsed means no newer version.
func IsNewer(current, candidate string) bool {
	cur, err := Parse(current)
	if err != nil {
		log.Warnf("malformed current build label %q: %v", current, err)
		return false
	}
	cand, err := Parse(candidate)
	if err != nil {
		log.Warnf("malformed candidate build label %q: %v", candidate, err)
		return false
	}
	return cand.NewerThan(cur)
}
