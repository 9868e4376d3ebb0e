package splash

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/simplefx/simplefx-update/internal/statusfile"
)

func TestModel_FinishQuits(t *testing.T) {
	lines := make(chan string)
	m := newModel("Updating Ledger", lines)

	next, cmd := m.Update(lineMsg(statusfile.Finished))
	fm := next.(model)
	if !fm.done {
		t.Error("expected done after FINISHED")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !strings.Contains(fm.View(), "Update complete") {
		t.Errorf("View() = %q", fm.View())
	}
}

func TestModel_ProgressLine(t *testing.T) {
	lines := make(chan string, 1)
	m := newModel("", lines)

	next, cmd := m.Update(lineMsg("Copying new version"))
	fm := next.(model)
	if fm.done {
		t.Error("progress line must not finish the indicator")
	}
	if fm.status != "Copying new version" {
		t.Errorf("status = %q", fm.status)
	}
	if cmd == nil {
		t.Error("expected command waiting for the next line")
	}
	if !strings.Contains(fm.View(), "Updating") {
		t.Errorf("View() should carry default title: %q", fm.View())
	}
}

func TestModel_StartedTokenIgnored(t *testing.T) {
	m := newModel("x", make(chan string))
	next, _ := m.Update(lineMsg(statusfile.Started))
	if next.(model).status != m.status {
		t.Error("STARTED token should not change status text")
	}
}

func TestRun_NonInteractive(t *testing.T) {
	sf, err := statusfile.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// the relay only finishes after the indicator announced itself
		if err := sf.WaitFor(ctx, statusfile.Started); err == nil {
			_ = sf.Finish()
		}
	}()

	err = Run(context.Background(), Options{StatusPath: sf.Path(), Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
}

func TestRun_Timeout(t *testing.T) {
	sf, err := statusfile.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	err = Run(context.Background(), Options{StatusPath: sf.Path(), Timeout: 200 * time.Millisecond})
	if !errors.Is(err, ErrTimedOut) {
		t.Errorf("Run() error = %v, want ErrTimedOut", err)
	}
	if ok, _ := sf.Has(statusfile.Started); !ok {
		t.Error("expected STARTED to be written")
	}
}

func TestRun_RequiresPath(t *testing.T) {
	if err := Run(context.Background(), Options{}); err == nil {
		t.Error("expected error without status path")
	}
}
