package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/simplefx/simplefx-update/internal/config"
	"github.com/simplefx/simplefx-update/internal/manifest"
	"github.com/simplefx/simplefx-update/internal/process"
	"github.com/simplefx/simplefx-update/internal/statusfile"
	ui "github.com/simplefx/simplefx-update/internal/ui"
	"github.com/simplefx/simplefx-update/internal/update"
)

// Prompter abstracts interactive terminal I/O for testability.
type Prompter interface {
	// ReadLine displays the prompt and reads a line of input.
	ReadLine(prompt string) (string, error)
	// IsInteractive returns whether the terminal supports interactive input.
	IsInteractive() bool
}

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg      config.Config
	Printer  ui.Printer
	Prompter Prompter
	Spawner  process.Spawner
	Splash   update.SplashLauncher
	Host     update.Host
	Reader   manifest.Reader
	Output   io.Writer
	// Self is the running build; Exe is this executable.
	Self string
	Exe  string
}

// ttyPrompter is the production implementation of Prompter.
// It uses /dev/tty when stdin is not a terminal (e.g., piped input).
type ttyPrompter struct{}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)

	var reader *bufio.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader = bufio.NewReader(os.Stdin)
	} else {
		tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		reader = bufio.NewReader(tty)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ttyPrompter) IsInteractive() bool {
	if flagNonInteractive {
		return false
	}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err == nil {
		tty.Close()
		return true
	}
	return false
}

// promptConfirmer asks the update question on the terminal.
type promptConfirmer struct {
	prompter Prompter
	printer  ui.Printer
	yes      bool
}

func (c *promptConfirmer) Confirm(_ context.Context, p update.Prompt) (bool, error) {
	if c.yes {
		return true, nil
	}
	if c.prompter == nil || !c.prompter.IsInteractive() {
		return false, fmt.Errorf("cannot ask for confirmation without a terminal (use --yes)")
	}
	colors := c.printer.Colors
	if colors == nil {
		colors = ui.NewColorConfig()
	}
	c.printer.Textf("%s\n", colors.Box(p.Text(), 60))
	answer, err := c.prompter.ReadLine(colors.Prompt("Update now? [Y/n]: "))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// cliHost ends the first and second generations once the next one is up.
type cliHost struct {
	printer ui.Printer
	quiet   bool
}

func (h *cliHost) CloseSplash() {}

func (h *cliHost) Exit(code int) {
	if !h.quiet && code == 0 {
		h.printer.Success("Updated build started, exiting")
	}
	os.Exit(code)
}

// selfSplash runs this executable's hidden splash command as the updating
// indicator, drawing on the current terminal.
type selfSplash struct {
	exe        string
	stagingDir string
	timeout    string
	spawner    process.Spawner
}

func (s *selfSplash) Launch(ctx context.Context) (string, error) {
	sf, err := statusfile.New(s.stagingDir)
	if err != nil {
		return "", err
	}
	args := []string{"splash", "--status-file", sf.Path()}
	if s.timeout != "" {
		args = append(args, "--timeout", s.timeout)
	}
	if flagNoColor {
		args = append(args, "--no-color")
	}
	if _, err := s.spawner.Start(ctx, process.Command{Path: s.exe, Args: args, Inherit: true}); err != nil {
		return "", err
	}
	return sf.Path(), nil
}

// executable returns this program's resolved path.
func executable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

func defaultSpawner() process.Spawner { return process.ExecSpawner{} }

// newDeps creates production dependencies from the current flags and config.
func newDeps() (*Deps, error) {
	cfg, err := loadCfg()
	if err != nil {
		return nil, err
	}
	exe, err := executable()
	if err != nil {
		return nil, err
	}
	self := exe
	if flagArtifact != "" {
		if self, err = filepath.Abs(flagArtifact); err != nil {
			return nil, err
		}
	}

	printer := getPrinter()
	spawner := defaultSpawner()
	d := &Deps{
		Cfg:      cfg,
		Printer:  printer,
		Prompter: &ttyPrompter{},
		Spawner:  spawner,
		Host:     &cliHost{printer: printer, quiet: printer.Structured()},
		Reader:   readerFor(cfg),
		Output:   os.Stdout,
		Self:     self,
		Exe:      exe,
	}
	if cfg.Splash && !printer.Structured() {
		d.Splash = &selfSplash{
			exe:        exe,
			stagingDir: cfg.StagingDir,
			timeout:    cfg.SplashTimeout.String(),
			spawner:    spawner,
		}
	}
	return d, nil
}
