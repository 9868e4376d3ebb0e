package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/handoff"
)

// FileName is the default configuration file looked up next to the
// application and in the user's config directory.
const FileName = "simplefx.yaml"

// Retry bounds the delete-while-locked loop of the relay.
type Retry struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// Rename declares an artifact whose file name changes between versions.
type Rename struct {
	CurrentName string `yaml:"current_name"`
	FutureName  string `yaml:"future_name"`
}

// Config holds the key-value settings the updater reads.
type Config struct {
	AppName        string        `yaml:"app_name"`
	SharedDir      string        `yaml:"shared_dir"`
	ArtifactExt    string        `yaml:"artifact_ext"`
	StagingDir     string        `yaml:"staging_dir"`
	StateDir       string        `yaml:"state_dir"`
	LaunchCommand  []string      `yaml:"launch_command"`
	Splash         bool          `yaml:"splash"`
	SplashTimeout  time.Duration `yaml:"splash_timeout"`
	Debug          bool          `yaml:"debug"`
	LogDir         string        `yaml:"log_dir"`
	MetadataSource string        `yaml:"metadata_source"` // auto|manifest|exec
	Retry          Retry         `yaml:"retry"`
	Rename         Rename        `yaml:"rename"`
}

// Defaults returns settings for a jar-packaged application.
func Defaults() Config {
	return Config{
		AppName:        "SimpleFX",
		ArtifactExt:    ".jar",
		StagingDir:     filepath.Join(os.TempDir(), "simplefx-update"),
		StateDir:       defaultStateDir(),
		LaunchCommand:  []string{"java", "-jar"},
		Splash:         true,
		SplashTimeout:  2 * time.Minute,
		MetadataSource: "auto",
		Retry: Retry{
			MaxAttempts:     40,
			InitialInterval: 25 * time.Millisecond,
			MaxInterval:     2 * time.Second,
		},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "simplefx")
	}
	return filepath.Join(os.TempDir(), "simplefx-update")
}

// Load reads path (if non-empty and present) over the defaults, then applies
// SIMPLEFX_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, exitcodes.WrapError(exitcodes.ValidationError, "invalid config "+path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SIMPLEFX_SHARED_DIR"); v != "" {
		cfg.SharedDir = v
	}
	if v := os.Getenv("SIMPLEFX_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("SIMPLEFX_STAGING_DIR"); v != "" {
		cfg.StagingDir = v
	}
	if v := os.Getenv("SIMPLEFX_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}
}

// DefaultPath returns the first existing config file: next to the running
// executable, then in the user config directory.
func DefaultPath() string {
	var candidates []string
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), FileName))
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "simplefx", FileName))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Validate reports settings the update check cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.SharedDir) == "" {
		return exitcodes.ValidationErr("shared_dir is not configured")
	}
	if !strings.HasPrefix(c.ArtifactExt, ".") {
		return exitcodes.ValidationErrf("artifact_ext %q must start with a dot", c.ArtifactExt)
	}
	switch c.MetadataSource {
	case "auto", "manifest", "exec":
	default:
		return exitcodes.ValidationErrf("metadata_source %q must be auto, manifest or exec", c.MetadataSource)
	}
	if (c.Rename.CurrentName == "") != (c.Rename.FutureName == "") {
		return exitcodes.ValidationErr("rename needs both current_name and future_name")
	}
	for _, n := range []string{c.Rename.CurrentName, c.Rename.FutureName} {
		if n != "" && !handoff.IsFileName(n) {
			return exitcodes.ValidationErrf("rename name %q must be a plain file name", n)
		}
	}
	if c.Retry.MaxAttempts < 0 {
		return exitcodes.ValidationErrf("retry.max_attempts %d must not be negative", c.Retry.MaxAttempts)
	}
	return nil
}

// Launch returns the launcher prefix for artifacts of the configured type.
// Native executables ignore launch_command.
func (c Config) Launch() []string {
	switch strings.ToLower(c.ArtifactExt) {
	case ".jar":
		return c.LaunchCommand
	default:
		return nil
	}
}

// String is used by --debug output.
func (c Config) String() string {
	return fmt.Sprintf("shared_dir=%s ext=%s staging=%s splash=%v debug=%v", c.SharedDir, c.ArtifactExt, c.StagingDir, c.Splash, c.Debug)
}
