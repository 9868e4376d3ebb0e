package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/simplefx/simplefx-update/internal/config"
	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/handoff"
	"github.com/simplefx/simplefx-update/internal/statusfile"
	"github.com/simplefx/simplefx-update/internal/testutil"
	"github.com/simplefx/simplefx-update/internal/update"
)

func TestParseHandoff(t *testing.T) {
	cfg := config.Defaults()
	cfg.StateDir = "/state"
	exe := filepath.Join("/opt", "simplefx", "SimpleFX-v2.1.jar")

	blob, err := handoff.Encode(handoff.Message{
		Mode:       handoff.ModeUpdate,
		DeletePath: "/opt/simplefx/SimpleFX-v2.0.jar",
		InstallDir: "/opt/simplefx",
	})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		blob        string
		legacy      bool
		args        []string
		wantErr     bool
		wantMode    handoff.Mode
		wantInstall string
	}{
		{name: "encoded", blob: blob, wantMode: handoff.ModeUpdate, wantInstall: "/opt/simplefx"},
		{name: "legacy update", legacy: true,
			args:     []string{"/apps/SimpleFX-v2.0.jar", "true", "false", "/tmp"},
			wantMode: handoff.ModeUpdate, wantInstall: "/apps"},
		{name: "legacy cleanup", legacy: true,
			args:     []string{"/tmp/stage-1/SimpleFX-v2.1.jar", "false", "true", "/tmp", "/tmp/status"},
			wantMode: handoff.ModeCleanup, wantInstall: filepath.Dir(exe)},
		{name: "legacy rename", legacy: true,
			args:     []string{handoff.RefactorToken, "/apps/SimpleFX.jar", "true", "false", "/tmp", "SimpleFX.jar", "SimpleFX-Pro.jar"},
			wantMode: handoff.ModeRename, wantInstall: "/apps"},
		{name: "missing", wantErr: true},
		{name: "both", blob: blob, legacy: true, wantErr: true},
		{name: "garbage blob", blob: "!!!", wantErr: true},
		{name: "blob with extra args", blob: blob, args: []string{"x"}, wantErr: true},
		{name: "legacy too few", legacy: true, args: []string{"/a", "true"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := parseHandoff(tt.blob, tt.legacy, tt.args, exe, cfg)
			if tt.wantErr {
				if !errors.Is(err, handoff.ErrInvalid) {
					t.Fatalf("err = %v, want ErrInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHandoff() error: %v", err)
			}
			if msg.Mode != tt.wantMode {
				t.Errorf("Mode = %q, want %q", msg.Mode, tt.wantMode)
			}
			if msg.InstallDir != tt.wantInstall {
				t.Errorf("InstallDir = %q, want %q", msg.InstallDir, tt.wantInstall)
			}
			if tt.legacy && msg.StateDir != "/state" {
				t.Errorf("StateDir = %q, want config value", msg.StateDir)
			}
		})
	}
}

func TestRunHandoff_Cleanup(t *testing.T) {
	var buf bytes.Buffer
	d := testDeps(t, "text", &buf)
	staged := testutil.WriteJar(t, filepath.Join(d.Cfg.StagingDir, "stage-1"), "SimpleFX-v2.1.jar", labelNew)
	sf, err := statusfile.New(d.Cfg.StagingDir)
	if err != nil {
		t.Fatal(err)
	}
	if err := update.SaveRecord(d.Cfg.StateDir, &update.Record{ToVersion: labelNew}); err != nil {
		t.Fatal(err)
	}

	msg := handoff.Message{
		Mode:         handoff.ModeCleanup,
		ArtifactPath: d.Self,
		DeletePath:   staged,
		StatusFile:   sf.Path(),
		StateDir:     d.Cfg.StateDir,
		Version:      "v2.1",
	}
	if err := runHandoff(context.Background(), d, msg); err != nil {
		t.Fatalf("runHandoff() error: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(staged)); !os.IsNotExist(err) {
		t.Errorf("stage dir still present: %v", err)
	}
	if done, _ := sf.Has(statusfile.Finished); !done {
		t.Error("FINISHED not written")
	}
	if !strings.Contains(buf.String(), "Updated to v2.1") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestRunHandoff_FailureCollapsesToOne(t *testing.T) {
	var buf bytes.Buffer
	d := testDeps(t, "text", &buf)
	msg := handoff.Message{
		Mode:       handoff.ModeUpdate,
		DeletePath: d.Self,
		InstallDir: filepath.Join(t.TempDir(), "missing"),
	}

	err := runHandoff(context.Background(), d, msg)
	if err == nil {
		t.Fatal("expected error")
	}
	if code := exitcodes.CodeForError(err); code != exitcodes.HandoffFailed {
		t.Errorf("exit code = %d, want %d", code, exitcodes.HandoffFailed)
	}
	var se silentErr
	if !errors.As(err, &se) {
		t.Error("relay failures are logged, not printed again")
	}
}
