//go:build windows

package ui

import "time"

// FlushStdinWithTimeout is a no-op; the Windows console does not echo
// terminal query responses into stdin.
func FlushStdinWithTimeout(time.Duration) {}
