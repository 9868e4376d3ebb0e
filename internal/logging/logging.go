package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is shared by every generation of one update so the whole relay
// lands in a single log.
const FileName = "simplefx-update.log"

// Options selects level and destination.
type Options struct {
	Debug bool
	// Dir receives FileName. Empty logs to Console only.
	Dir     string
	Console io.Writer
	// Generation tags every entry, e.g. "check", "update", "cleanup".
	Generation string
}

// Init configures the standard logrus logger.
func Init(opts Options) error {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&Formatter{
		TextFormatter: log.TextFormatter{FullTimestamp: true, DisableColors: true},
		generation:    opts.Generation,
		pid:           os.Getpid(),
	})

	console := opts.Console
	if console == nil {
		console = io.Discard
	}
	if opts.Dir == "" {
		log.SetOutput(console)
		return nil
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		log.SetOutput(console)
		return fmt.Errorf("create log dir: %w", err)
	}
	log.SetOutput(io.MultiWriter(console, &lumberjack.Logger{
		Filename:   filepath.ToSlash(Path(opts.Dir)),
		MaxSize:    5, // MB
		MaxBackups: 3,
		MaxAge:     30, // days
		Compress:   true,
	}))
	return nil
}

// Path returns the log file inside dir.
func Path(dir string) string { return filepath.Join(dir, FileName) }

// Formatter prefixes entries with the pid and relay generation, since
// several processes write the same file.
type Formatter struct {
	log.TextFormatter
	generation string
	pid        int
}

func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	entry.Data["pid"] = f.pid
	if f.generation != "" {
		entry.Data["gen"] = f.generation
	}
	return f.TextFormatter.Format(entry)
}
