package retry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultMaxAttempts     = 40
	DefaultInitialInterval = 25 * time.Millisecond
	DefaultMaxInterval     = 2 * time.Second
)

// Deleter removes files that may still be held open by an exiting process.
// It retries with exponential backoff until the path is gone or the attempt
// budget is spent.
type Deleter struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// overridable for tests
	remove func(string) error
	stat   func(string) (os.FileInfo, error)
}

// NewDeleter returns a Deleter with the given budget; zero values fall back
// to the defaults.
func NewDeleter(maxAttempts int, initial, maxInterval time.Duration) *Deleter {
	d := &Deleter{MaxAttempts: maxAttempts, InitialInterval: initial, MaxInterval: maxInterval}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = DefaultMaxAttempts
	}
	if d.InitialInterval <= 0 {
		d.InitialInterval = DefaultInitialInterval
	}
	if d.MaxInterval <= 0 {
		d.MaxInterval = DefaultMaxInterval
	}
	return d
}

func (d *Deleter) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.InitialInterval
	b.MaxInterval = d.MaxInterval
	b.MaxElapsedTime = 0 // bounded by attempts only
	attempts := d.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Remove deletes path and reports how many attempts it took. A path that
// does not exist counts as removed.
func (d *Deleter) Remove(ctx context.Context, path string) (int, error) {
	return d.run(ctx, path, d.removeFn())
}

// RemoveDir deletes an empty directory with the same policy.
func (d *Deleter) RemoveDir(ctx context.Context, dir string) (int, error) {
	return d.run(ctx, dir, d.removeFn())
}

// Rename moves from onto to with the same policy, for a destination the
// exiting generation may still hold. A missing source is not retried.
func (d *Deleter) Rename(ctx context.Context, from, to string) (int, error) {
	attempts := 0
	op := func() error {
		attempts++
		err := os.Rename(from, to)
		if errors.Is(err, os.ErrNotExist) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Debugf("rename %s attempt %d: %v", from, attempts, err)
		}
		return err
	}
	if err := backoff.Retry(op, d.policy(ctx)); err != nil {
		log.Errorf("giving up on renaming %s after %d attempts: %v", from, attempts, err)
		return attempts, fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return attempts, nil
}

func (d *Deleter) run(ctx context.Context, path string, remove func(string) error) (int, error) {
	stat := d.stat
	if stat == nil {
		stat = os.Stat
	}

	attempts := 0
	op := func() error {
		attempts++
		err := remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Debugf("delete %s attempt %d: %v", path, attempts, err)
			return err
		}
		if _, err := stat(path); err == nil {
			return fmt.Errorf("%s still exists", path)
		}
		return nil
	}

	if err := backoff.Retry(op, d.policy(ctx)); err != nil {
		log.Errorf("giving up on deleting %s after %d attempts: %v", path, attempts, err)
		return attempts, fmt.Errorf("delete %s: %w", path, err)
	}
	if attempts > 1 {
		log.Infof("deleted %s after %d attempts", path, attempts)
	}
	return attempts, nil
}

func (d *Deleter) removeFn() func(string) error {
	if d.remove != nil {
		return d.remove
	}
	return os.Remove
}
