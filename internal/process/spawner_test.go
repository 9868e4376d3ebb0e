//go:build !windows

package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLaunchCommand(t *testing.T) {
	tests := []struct {
		name     string
		launch   []string
		artifact string
		args     []string
		want     Command
	}{
		{
			name:     "native",
			artifact: "/opt/app/App-v2",
			args:     []string{"handoff", "--handoff=abc"},
			want:     Command{Path: "/opt/app/App-v2", Args: []string{"handoff", "--handoff=abc"}},
		},
		{
			name:     "jar",
			launch:   []string{"java", "-jar"},
			artifact: "/opt/app/App-v2.0.jar",
			args:     []string{"handoff"},
			want:     Command{Path: "java", Args: []string{"-jar", "/opt/app/App-v2.0.jar", "handoff"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LaunchCommand(tt.launch, tt.artifact, tt.args)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LaunchCommand() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExecSpawner_LongRunning(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	s := ExecSpawner{Grace: 100 * time.Millisecond}
	pid, err := s.Start(context.Background(), Command{Path: sh, Args: []string{"-c", "sleep 2"}})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !Alive(context.Background(), pid) {
		t.Error("expected child to be alive")
	}
	p, _ := os.FindProcess(pid)
	_ = p.Kill()
}

func TestExecSpawner_QuickSuccess(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	s := ExecSpawner{Grace: time.Second}
	if _, err := s.Start(context.Background(), Command{Path: sh, Args: []string{"-c", "exit 0"}}); err != nil {
		t.Errorf("Start() error: %v", err)
	}
}

func TestExecSpawner_EarlyFailure(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	s := ExecSpawner{Grace: time.Second}
	_, err = s.Start(context.Background(), Command{Path: sh, Args: []string{"-c", "exit 3"}})
	if !errors.Is(err, ErrExitedEarly) {
		t.Errorf("Start() error = %v, want ErrExitedEarly", err)
	}
}

func TestExecSpawner_MissingBinary(t *testing.T) {
	s := ExecSpawner{Grace: 10 * time.Millisecond}
	if _, err := s.Start(context.Background(), Command{Path: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Error("expected error for missing binary")
	}
}

func TestExecSpawner_LogFile(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	logFile := filepath.Join(t.TempDir(), "logs", "child.log")
	s := ExecSpawner{Grace: time.Second}
	if _, err := s.Start(context.Background(), Command{Path: sh, Args: []string{"-c", "echo hello"}, LogFile: logFile}); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Errorf("log file = %q, want child output", data)
	}
}

func TestWaitExit(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	cmd := exec.Command(sh, "-c", "sleep 0.2")
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	go func() { _ = cmd.Wait() }()

	if err := WaitExit(context.Background(), cmd.Process.Pid, 20*time.Millisecond, 5*time.Second); err != nil {
		t.Errorf("WaitExit() error: %v", err)
	}
}

func TestWaitExit_Timeout(t *testing.T) {
	if err := WaitExit(context.Background(), os.Getpid(), 10*time.Millisecond, 50*time.Millisecond); err == nil {
		t.Error("expected timeout waiting on our own pid")
	}
}

func TestWaitExit_NoParent(t *testing.T) {
	if err := WaitExit(context.Background(), 0, 0, time.Millisecond); err != nil {
		t.Errorf("WaitExit(0) error: %v", err)
	}
}

func TestAlive(t *testing.T) {
	if !Alive(context.Background(), os.Getpid()) {
		t.Error("expected own pid to be alive")
	}
	if Alive(context.Background(), -1) {
		t.Error("expected negative pid to be dead")
	}
}
