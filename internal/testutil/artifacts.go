// Package testutil builds throwaway artifacts for tests.
package testutil

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/simplefx/simplefx-update/internal/manifest"
)

// Label returns a build label in the packaged format.
func Label(buildID, timestamp, version, date string) string {
	return "simplefx-" + buildID + "-" + timestamp + " " + version + " " + date
}

// WriteJar writes a zip bundle at dir/name whose manifest carries label as
// its Implementation-Version. An empty label omits the attribute.
func WriteJar(t testing.TB, dir, name, label string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	mf, err := zw.Create(manifest.Path)
	if err != nil {
		t.Fatal(err)
	}
	attrs := map[string]string{"Main-Class": "simplefx.Main"}
	if label != "" {
		attrs[manifest.ImplementationVersion] = label
	}
	if err := manifest.Write(mf, attrs); err != nil {
		t.Fatal(err)
	}
	body, err := zw.Create("simplefx/Main.class")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := body.Write([]byte(name)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteFile writes a plain file, creating dir as needed, and returns its
// path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
