package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/simplefx/simplefx-update/internal/config"
	"github.com/simplefx/simplefx-update/internal/exitcodes"
	"github.com/simplefx/simplefx-update/internal/handoff"
	"github.com/simplefx/simplefx-update/internal/logging"
	"github.com/simplefx/simplefx-update/internal/update"
)

var handoffCmd = &cobra.Command{
	Use:    "handoff [--handoff MESSAGE | --legacy ARGS...]",
	Short:  "Continue an update started by a previous process",
	Hidden: true,
	Args:   cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, _ := cmd.Flags().GetString(handoff.Flag)
		legacy, _ := cmd.Flags().GetBool("legacy")

		exe, err := executable()
		if err != nil {
			return exitcodes.WrapError(exitcodes.HandoffFailed, "locate executable", err)
		}
		cfg, cfgErr := loadCfg()
		msg, err := parseHandoff(blob, legacy, args, exe, cfg)
		if err != nil {
			return exitcodes.WrapError(exitcodes.HandoffFailed, "invalid handoff", err)
		}
		if cfgErr != nil {
			// the message carries everything the relay needs
			cfg = config.Defaults()
		}

		initRelayLogging(msg)
		d := &Deps{Cfg: cfg, Printer: getPrinter(), Exe: exe, Self: exe}
		d.Spawner = defaultSpawner()
		d.Host = &cliHost{printer: d.Printer, quiet: true}
		return runHandoff(cmd.Context(), d, msg)
	},
}

func init() {
	handoffCmd.Flags().String(handoff.Flag, "", "Encoded handoff message")
	handoffCmd.Flags().Bool("legacy", false, "Read the handoff from positional arguments")
	rootCmd.AddCommand(handoffCmd)
}

// parseHandoff builds the relay message from either the encoded flag or the
// positional layout. The positional layout has no install directory: the
// update phase installs next to the artifact it deletes, cleanup runs where
// exe lives.
func parseHandoff(blob string, legacy bool, args []string, exe string, cfg config.Config) (handoff.Message, error) {
	var msg handoff.Message
	switch {
	case blob != "" && legacy:
		return msg, fmt.Errorf("%w: --%s and --legacy are exclusive", handoff.ErrInvalid, handoff.Flag)
	case blob != "":
		if len(args) > 0 {
			return msg, fmt.Errorf("%w: unexpected arguments %v", handoff.ErrInvalid, args)
		}
		m, err := handoff.Decode(blob)
		if err != nil {
			return msg, err
		}
		msg = m
	case legacy:
		m, err := handoff.ParseLegacy(args)
		if err != nil {
			return msg, err
		}
		msg = m
		if msg.IsUpdate() {
			msg.InstallDir = filepath.Dir(msg.DeletePath)
		} else {
			msg.InstallDir = filepath.Dir(exe)
		}
		msg.Launch = cfg.Launch()
		msg.StateDir = cfg.StateDir
	default:
		return msg, fmt.Errorf("%w: missing --%s", handoff.ErrInvalid, handoff.Flag)
	}
	return msg, msg.Validate()
}

// initRelayLogging sends relay logs to the shared log file when debugging.
// Relaunched processes have no console worth writing to.
func initRelayLogging(msg handoff.Message) {
	opts := logging.Options{Debug: msg.Debug, Generation: string(msg.Mode)}
	if msg.Debug && msg.WorkDir != "" {
		opts.Dir = msg.WorkDir
	} else {
		opts.Console = os.Stderr
	}
	if err := logging.Init(opts); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
	}
}

// runHandoff performs this generation's part of the relay. Any failure
// collapses to the single relay failure code.
func runHandoff(ctx context.Context, d *Deps, msg handoff.Message) error {
	relay := &update.Relay{
		Spawner: d.Spawner,
		Host:    d.Host,
		Deleter: newDeleter(d.Cfg),
		Self:    d.Self,
	}
	res, err := relay.Handle(ctx, msg)
	if err != nil {
		log.Errorf("%s phase failed: %v", msg.Mode, err)
		return silentErr{exitcodes.WrapError(exitcodes.HeadlessCode(err), string(msg.Mode)+" failed", err)}
	}
	if msg.Mode == handoff.ModeCleanup {
		d.Printer.Success(fmt.Sprintf("Updated to %s", versionOrPath(msg.Version, res.Installed)))
	}
	return nil
}

func versionOrPath(version, path string) string {
	if version != "" {
		return version
	}
	return filepath.Base(path)
}
