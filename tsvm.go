// This file is part of TSVM.
//
// TSVM is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// TSVM is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with TSVM.  If not, see <https://www.gnu.org/licenses/>.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/prefs"
	"github.com/curioustorvald/tsvm/version"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"golang.org/x/term"
)

func main() {
	// a .env file in the working directory is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "* %v\n", err)
	}

	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "* %v\n", err)
		atexit.Exit(10)
	}

	atexit.Exit(0)
}

// options shared by every command that creates a machine.
type options struct {
	prefs   string
	roms    []string
	entries []string
	storage string
	echo    bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "tsvm",
		Short:         "A virtual computer with block transfer peripherals.",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if opts.prefs != "" {
				prefs.PushCommandLineStack(opts.prefs)
			}
			if opts.echo {
				echoLog(cmd.ErrOrStderr())
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.prefs, "prefs", "", "preference overrides (key::value; key::value)")
	flags.StringSliceVar(&opts.roms, "roms", nil, "ROM identifiers in window order. defaults to the hardware.roms preference")
	flags.StringArrayVar(&opts.entries, "entry", nil, "peripheral entry (slot:id[:key=value,...]). replaces the default entries")
	flags.StringVar(&opts.storage, "storage", "", "storage root for file backed peripherals. defaults to the hardware.storage preference")
	flags.BoolVar(&opts.echo, "log", false, "echo log entries to stderr")

	root.AddCommand(newRunCommand(opts))
	root.AddCommand(newDumpCommand(opts))
	root.AddCommand(newVersionCommand())

	return root
}

// echo the central log to output. terminals get coloured output.
func echoLog(output io.Writer) {
	if f, ok := output.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		output = logger.NewColorizer(output)
	}
	logger.SetEcho(output, false)
}

func versionString() string {
	v, r, release := version.Version()
	if release {
		return v
	}
	return fmt.Sprintf("%s (%s)", v, r)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.ApplicationName, versionString())
		},
	}
}
