package statusfile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func TestMarkAndHas(t *testing.T) {
	f, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := f.Has(Finished); err != nil || ok {
		t.Fatalf("Has(FINISHED) on empty file = %v, %v", ok, err)
	}
	if err := f.Mark(Started); err != nil {
		t.Fatal(err)
	}
	if err := f.Finish(); err != nil {
		t.Fatal(err)
	}
	for _, tok := range []string{Started, Finished} {
		if ok, err := f.Has(tok); err != nil || !ok {
			t.Errorf("Has(%s) = %v, %v; want true", tok, ok, err)
		}
	}
}

func TestHas_MissingFile(t *testing.T) {
	f := Open(filepath.Join(t.TempDir(), "nope.txt"))
	ok, err := f.Has(Finished)
	if err != nil || ok {
		t.Errorf("Has() = %v, %v; want false, nil", ok, err)
	}
}

func TestWaitFor_AlreadyWritten(t *testing.T) {
	f, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Finish(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.WaitFor(ctx, Finished); err != nil {
		t.Errorf("WaitFor() error: %v", err)
	}
}

func TestWaitFor_WrittenLater(t *testing.T) {
	f, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = f.Mark(Started)
		time.Sleep(50 * time.Millisecond)
		_ = f.Finish()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := f.WaitFor(ctx, Finished); err != nil {
		t.Fatalf("WaitFor() error: %v", err)
	}
}

func TestWaitFor_Timeout(t *testing.T) {
	f, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := f.WaitFor(ctx, Finished); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitFor() error = %v, want deadline exceeded", err)
	}
}
