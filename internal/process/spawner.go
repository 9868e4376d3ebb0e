package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"
)

// DefaultGrace is how long Start watches a child before calling it alive.
const DefaultGrace = 750 * time.Millisecond

var ErrExitedEarly = errors.New("process exited during startup")

// Command describes the next generation to launch.
type Command struct {
	Path    string
	Args    []string
	Dir     string
	LogFile string // stdout/stderr destination; empty discards output
	// Inherit keeps this process's stdout/stderr, e.g. so an indicator can
	// draw on the same terminal. LogFile takes precedence.
	Inherit bool
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Spawner launches a detached process and confirms that it came up.
type Spawner interface {
	Start(ctx context.Context, c Command) (int, error)
}

// ExecSpawner starts real OS processes in their own session so they outlive
// the spawning generation.
type ExecSpawner struct {
	Grace time.Duration
}

// Start launches c and waits up to Grace. A child still running, or one that
// already exited with status 0, counts as started.
func (s ExecSpawner) Start(ctx context.Context, c Command) (int, error) {
	if c.Path == "" {
		return 0, errors.New("empty command path")
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdin = nil

	var lf *os.File
	if c.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(c.LogFile), 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		lf = f
		cmd.Stdout = f
		cmd.Stderr = f
	} else if c.Inherit {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	// Detach from this session/process group
	setDetached(cmd)

	log.Infof("starting %s (dir %s)", c, c.Dir)
	if err := cmd.Start(); err != nil {
		if lf != nil {
			_ = lf.Close()
		}
		return 0, fmt.Errorf("start %s: %w", c.Path, err)
	}
	pid := cmd.Process.Pid
	if lf != nil {
		// the child holds its own descriptor
		_ = lf.Close()
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	grace := s.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case err := <-exited:
		if err != nil {
			return pid, fmt.Errorf("%w: pid %d: %v", ErrExitedEarly, pid, err)
		}
		log.Infof("pid %d finished during startup", pid)
		return pid, nil
	case <-timer.C:
	case <-ctx.Done():
		return pid, ctx.Err()
	}

	if !Alive(ctx, pid) {
		return pid, fmt.Errorf("%w: pid %d", ErrExitedEarly, pid)
	}
	log.Infof("pid %d is running", pid)
	return pid, nil
}

// Alive reports whether pid exists and is not a zombie.
func Alive(ctx context.Context, pid int) bool {
	if pid <= 0 {
		return false
	}
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return false
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		// status is not available on every platform
		return true
	}
	for _, st := range status {
		if st == process.Zombie {
			return false
		}
	}
	return true
}

// WaitExit blocks until pid is gone, polling every interval, or until
// timeout elapses. A non-positive pid returns immediately.
func WaitExit(ctx context.Context, pid int, interval, timeout time.Duration) error {
	if pid <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !Alive(ctx, pid) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("pid %d still running: %w", pid, ctx.Err())
		case <-ticker.C:
		}
	}
}

// LaunchCommand builds the command that runs artifact with args. Bundles
// need a launcher (e.g. "java -jar"); native executables run directly.
func LaunchCommand(launch []string, artifact string, args []string) Command {
	if len(launch) == 0 {
		return Command{Path: artifact, Args: append([]string{}, args...)}
	}
	argv := append(append(append([]string{}, launch[1:]...), artifact), args...)
	return Command{Path: launch[0], Args: argv}
}
