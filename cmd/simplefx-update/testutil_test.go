package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/simplefx/simplefx-update/internal/config"
	"github.com/simplefx/simplefx-update/internal/manifest"
	"github.com/simplefx/simplefx-update/internal/process"
	"github.com/simplefx/simplefx-update/internal/testutil"
	ui "github.com/simplefx/simplefx-update/internal/ui"
)

// errMock is a generic error for test assertions.
var errMock = errors.New("mock error")

type mockPrompter struct {
	responses   []string
	interactive bool
	callIndex   int
	prompts     []string
}

func (p *mockPrompter) ReadLine(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.callIndex >= len(p.responses) {
		return "", fmt.Errorf("no more responses configured")
	}
	resp := p.responses[p.callIndex]
	p.callIndex++
	return resp, nil
}

func (p *mockPrompter) IsInteractive() bool {
	return p.interactive
}

type mockSpawner struct {
	cmds []process.Command
	pid  int
	err  error
}

func (s *mockSpawner) Start(_ context.Context, c process.Command) (int, error) {
	s.cmds = append(s.cmds, c)
	return s.pid, s.err
}

type mockHost struct {
	exits []int
}

func (h *mockHost) CloseSplash()  {}
func (h *mockHost) Exit(code int) { h.exits = append(h.exits, code) }

var (
	labelOld = testutil.Label("1", "202301010000", "v2.0", "January 1 2023")
	labelNew = testutil.Label("2", "202406010000", "v2.1", "June 1 2024")
)

// testDeps lays out install, shared, staging and state directories with the
// running build installed, and returns Deps writing to buf.
func testDeps(t *testing.T, format string, buf *bytes.Buffer) *Deps {
	t.Helper()
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.SharedDir = filepath.Join(root, "shared")
	cfg.StagingDir = filepath.Join(root, "staging")
	cfg.StateDir = filepath.Join(root, "state")
	cfg.Splash = false
	if err := os.MkdirAll(cfg.SharedDir, 0o755); err != nil {
		t.Fatal(err)
	}
	self := testutil.WriteJar(t, filepath.Join(root, "install"), "SimpleFX-v2.0.jar", labelOld)

	p := ui.NewPrinter(format).WithWriter(buf)
	p.Colors.Enabled = false
	p.Colors.EmojiEnabled = false
	return &Deps{
		Cfg:      cfg,
		Printer:  p,
		Prompter: &mockPrompter{},
		Spawner:  &mockSpawner{pid: 77},
		Host:     &mockHost{},
		Reader:   manifest.ZipReader{},
		Output:   buf,
		Self:     self,
		Exe:      filepath.Join(root, "bin", "simplefx-update"),
	}
}
