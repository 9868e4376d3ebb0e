package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/simplefx/simplefx-update/internal/buildinfo"
	"github.com/simplefx/simplefx-update/internal/exitcodes"
	ui "github.com/simplefx/simplefx-update/internal/ui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	RunE: func(cmd *cobra.Command, args []string) error {
		implementation, _ := cmd.Flags().GetBool("implementation")
		return printVersion(os.Stdout, getPrinter(), implementation)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			return exitcodes.InvalidArgsErrorf("unknown shell: %s", args[0])
		}
	},
}

func init() {
	versionCmd.Flags().Bool("implementation", false, "Print only the build label other builds compare against")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

// versionInfo is the structured form of version output.
type versionInfo struct {
	Version        string `json:"version" yaml:"version"`
	Commit         string `json:"commit" yaml:"commit"`
	BuildDate      string `json:"build_date" yaml:"build_date"`
	Implementation string `json:"implementation,omitempty" yaml:"implementation,omitempty"`
	MajorMinor     string `json:"major_minor,omitempty" yaml:"major_minor,omitempty"`
}

// printVersion writes version information. With implementation set it
// prints the bare label, which is what the exec metadata reader parses.
func printVersion(w io.Writer, p ui.Printer, implementation bool) error {
	if implementation {
		if ImplementationVersion == "" {
			return exitcodes.ValidationErr("this build carries no implementation version")
		}
		fmt.Fprintln(w, ImplementationVersion)
		return nil
	}

	info := versionInfo{
		Version:        Version,
		Commit:         Commit,
		BuildDate:      BuildDate,
		Implementation: ImplementationVersion,
	}
	if v, err := buildinfo.Parse(ImplementationVersion); err == nil {
		info.MajorMinor = v.MajorMinor()
	}
	if p.Structured() {
		return p.WithWriter(w).Value(info)
	}
	fmt.Fprintf(w, "simplefx-update %s (%s) built %s\n", Version, Commit, BuildDate)
	if info.Implementation != "" {
		fmt.Fprintf(w, "build %s\n", info.Implementation)
	}
	return nil
}
