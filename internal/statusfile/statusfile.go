package statusfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const (
	// Started is written by the updating indicator once it is watching.
	Started = "STARTED"
	// Finished is written by the last generation of the relay.
	Finished = "FINISHED"

	pollInterval = 250 * time.Millisecond
)

// File is the plain-text handoff signal shared between the relay and the
// updating indicator. Each token occupies one line.
type File struct {
	path string
}

// New creates an empty status file in dir.
func New(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.CreateTemp(dir, "simplefx-status-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create status file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return &File{path: f.Name()}, nil
}

// Open wraps an existing status file path.
func Open(path string) *File { return &File{path: path} }

func (f *File) Path() string { return f.path }

// Mark appends token to the file.
func (f *File) Mark(token string) error {
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(fh, token); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

// Finish writes the completion sentinel.
func (f *File) Finish() error { return f.Mark(Finished) }

// Has reports whether token has been written. A missing file has no tokens.
func (f *File) Has(token string) (bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == token {
			return true, nil
		}
	}
	return false, sc.Err()
}

// WaitFor blocks until token appears in the file or ctx ends.
func (f *File) WaitFor(ctx context.Context, token string) error {
	if ok, err := f.Has(token); err != nil {
		return err
	} else if ok {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warnf("failed to close watcher: %v", err)
		}
	}()

	// watch the directory, the file may be replaced or not exist yet
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	// some filesystems (network shares) drop events, so poll as well
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			log.Warnf("status file watcher error: %v", err)
		case <-ticker.C:
		}

		ok, err := f.Has(token)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
}
