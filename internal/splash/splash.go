package splash

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/nxadm/tail"
	log "github.com/sirupsen/logrus"

	"github.com/simplefx/simplefx-update/internal/statusfile"
)

// DefaultTimeout bounds how long the indicator waits for the relay.
const DefaultTimeout = 2 * time.Minute

var ErrTimedOut = errors.New("update did not finish in time")

// Options configures the updating indicator.
type Options struct {
	StatusPath  string
	Title       string
	Timeout     time.Duration
	Output      io.Writer
	Interactive bool // render the spinner; otherwise wait silently
}

// Run marks the status file as watched and blocks until the relay writes
// FINISHED, the timeout expires or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.StatusPath == "" {
		return errors.New("status file path required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sf := statusfile.Open(opts.StatusPath)
	if err := sf.Mark(statusfile.Started); err != nil {
		return fmt.Errorf("mark status file: %w", err)
	}

	lines, err := follow(ctx, opts.StatusPath)
	if err != nil {
		return err
	}

	if !opts.Interactive {
		return waitFinished(ctx, lines)
	}

	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	m := newModel(opts.Title, lines)
	p := tea.NewProgram(m, tea.WithOutput(out), tea.WithInput(nil), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(model); ok && fm.done {
		return nil
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimedOut
		}
		return ctx.Err()
	}
	return err
}

func waitFinished(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimedOut
			}
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return errors.New("status file closed before the update finished")
			}
			if l == statusfile.Finished {
				return nil
			}
		}
	}
}

// follow streams trimmed lines of the status file until ctx ends.
func follow(ctx context.Context, path string) (<-chan string, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    false,
		MustExist: false,
		Poll:      false,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to follow status file: %w", err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer t.Cleanup()
		defer func() { _ = t.Stop() }()
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-t.Lines:
				if !ok || line == nil {
					return
				}
				if line.Err != nil {
					log.Warnf("status file: %v", line.Err)
					continue
				}
				select {
				case out <- strings.TrimSpace(line.Text):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

type lineMsg string

type closedMsg struct{}

type model struct {
	spinner spinner.Model
	title   string
	status  string
	lines   <-chan string
	done    bool
}

func newModel(title string, lines <-chan string) model {
	if title == "" {
		title = "Updating"
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return model{spinner: s, title: title, status: "Installing the new version…", lines: lines}
}

func waitLine(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		l, ok := <-lines
		if !ok {
			return closedMsg{}
		}
		return lineMsg(l)
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitLine(m.lines))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case lineMsg:
		switch string(msg) {
		case statusfile.Finished:
			m.done = true
			m.status = "Update complete"
			return m, tea.Quit
		case statusfile.Started, "":
		default:
			m.status = string(msg)
		}
		return m, waitLine(m.lines)
	case closedMsg:
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 2)

	icon := m.spinner.View()
	if m.done {
		icon = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("✓")
	}
	body := fmt.Sprintf("%s %s\n%s", icon, titleStyle.Render(m.title), statusStyle.Render(m.status))
	return box.Render(body) + "\n"
}
