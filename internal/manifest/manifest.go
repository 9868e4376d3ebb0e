package manifest

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"time"
)

const (
	// Path of the manifest inside a zip bundle.
	Path = "META-INF/MANIFEST.MF"

	// ImplementationVersion is the attribute holding the build label.
	ImplementationVersion = "Implementation-Version"

	maxLineLen  = 72
	execTimeout = 10 * time.Second
)

var ErrNoVersion = errors.New("artifact has no Implementation-Version")

// Reader extracts the embedded build label of an artifact.
type Reader interface {
	ImplementationVersion(ctx context.Context, path string) (string, error)
}

// ZipReader reads the label from META-INF/MANIFEST.MF of a zip bundle.
type ZipReader struct{}

func (ZipReader) ImplementationVersion(_ context.Context, path string) (string, error) {
	attrs, err := Attributes(path)
	if err != nil {
		return "", err
	}
	v, ok := attrs[ImplementationVersion]
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoVersion)
	}
	return v, nil
}

// Attributes returns the main section of the manifest in the zip at path.
func Attributes(path string) (map[string]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", path, err)
	}
	defer func() { _ = zr.Close() }()

	for _, f := range zr.File {
		if !strings.EqualFold(f.Name, Path) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open manifest: %w", err)
		}
		defer func() { _ = rc.Close() }()
		return Parse(rc)
	}
	return nil, fmt.Errorf("%s: no %s", path, Path)
}

// Parse reads the main section of a manifest. Lines starting with a single
// space continue the previous value.
func Parse(r io.Reader) (map[string]string, error) {
	attrs := make(map[string]string)
	scanner := bufio.NewScanner(r)
	var key string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			// end of main section
			break
		}
		if strings.HasPrefix(line, " ") {
			if key == "" {
				return nil, fmt.Errorf("continuation line without attribute: %q", line)
			}
			attrs[key] += line[1:]
			continue
		}
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed manifest line: %q", line)
		}
		key = strings.TrimSpace(k)
		attrs[key] = strings.TrimPrefix(v, " ")
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Write renders attrs as a manifest main section, wrapping long lines.
// Manifest-Version is always written first.
func Write(w io.Writer, attrs map[string]string) error {
	var buf bytes.Buffer
	version := attrs["Manifest-Version"]
	if version == "" {
		version = "1.0"
	}
	writeAttr(&buf, "Manifest-Version", version)

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		if k != "Manifest-Version" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeAttr(&buf, k, attrs[k])
	}
	buf.WriteString("\r\n")
	_, err := w.Write(buf.Bytes())
	return err
}

func writeAttr(buf *bytes.Buffer, key, value string) {
	line := key + ": " + value
	first := true
	for len(line) > 0 {
		limit := maxLineLen
		if !first {
			limit--
			buf.WriteByte(' ')
		}
		if len(line) <= limit {
			buf.WriteString(line)
			break
		}
		buf.WriteString(line[:limit])
		buf.WriteString("\r\n")
		line = line[limit:]
		first = false
	}
	buf.WriteString("\r\n")
}

// ExecReader asks a native executable for its own label by running
// "<artifact> version --implementation".
type ExecReader struct {
	// Launch prefixes the artifact path, e.g. []string{"java", "-jar"}.
	Launch  []string
	Timeout time.Duration
}

func (r ExecReader) ImplementationVersion(ctx context.Context, path string) (string, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = execTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append(append([]string{}, r.Launch...), path, "version", "--implementation")
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("query version of %s: %w", path, err)
	}
	v := strings.TrimSpace(stdout.String())
	if v == "" {
		return "", fmt.Errorf("%s: %w", path, ErrNoVersion)
	}
	return v, nil
}

// ForArtifact picks the reader matching the artifact extension. Zip-based
// bundles carry a manifest; anything else is asked directly.
func ForArtifact(ext string, launch []string) Reader {
	switch strings.ToLower(ext) {
	case ".jar", ".zip":
		return ZipReader{}
	default:
		return ExecReader{Launch: launch}
	}
}
