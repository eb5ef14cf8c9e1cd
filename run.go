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
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/curioustorvald/tsvm/govern"
	"github.com/curioustorvald/tsvm/logger"
	"github.com/curioustorvald/tsvm/monitoring"
	"github.com/curioustorvald/tsvm/session"
	"github.com/curioustorvald/tsvm/statsview"
	"github.com/curioustorvald/tsvm/tracing"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

type runOptions struct {
	steps        int
	trace        bool
	traceFile    string
	monitor      string
	browser      bool
	statsview    bool
	acknowledge  bool
	resetOnFatal bool
}

func newRunCommand(opts *options) *cobra.Command {
	ropts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot a host and run it",
		Long: "Boot a host with the BIOS interpreter and a session of peripherals. " +
			"The host runs for the number of steps given by --steps or until " +
			"interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cmd, opts, ropts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&ropts.steps, "steps", 0, "number of steps to run. zero runs until interrupted")
	flags.BoolVar(&ropts.trace, "trace", false, "record transfers and watchdog trips to a sqlite database")
	flags.StringVar(&ropts.traceFile, "trace-file", "", "trace database path. defaults to a generated name")
	flags.StringVar(&ropts.monitor, "monitor", "", "address of the monitoring server (eg. localhost:0)")
	flags.BoolVar(&ropts.browser, "browser", false, "open the monitoring server in a browser")
	flags.BoolVar(&ropts.statsview, "statsview", false, "launch the statsview server (requires the statsview build tag)")
	flags.BoolVar(&ropts.acknowledge, "ack", false, "acknowledge tripped watchdogs of the session automatically")
	flags.BoolVar(&ropts.resetOnFatal, "reset-on-fatal", false, "reset the host when a watchdog escalates")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts *options, ropts *runOptions) error {
	output := cmd.OutOrStdout()

	m, err := opts.newMachine(session.Params{
		AutoAcknowledge: ropts.acknowledge,
		ResetOnFatal:    ropts.resetOnFatal,
	})
	if err != nil {
		return err
	}
	defer m.close()

	if ropts.trace {
		rec, err := tracing.NewRecorder(ropts.traceFile)
		if err != nil {
			return err
		}
		defer func() {
			if err := rec.Close(); err != nil {
				logger.Log(logger.Allow, "tsvm", err)
			}
		}()
		rec.Attach(m.host)
		fmt.Fprintf(output, "tracing to %s\n", rec.Path())
	}

	var mon *monitoring.Monitor
	if ropts.monitor != "" {
		mon = monitoring.NewMonitor()
		mon.Register(m.host)

		url, err := mon.Start(ropts.monitor)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := mon.Stop(ctx); err != nil {
				logger.Log(logger.Allow, "tsvm", err)
			}
		}()

		fmt.Fprintf(output, "monitoring at %s\n", url)
		if ropts.browser {
			if err := browser.OpenURL(url); err != nil {
				logger.Log(logger.Allow, "tsvm", err)
			}
		}
	}

	if ropts.statsview {
		if statsview.Available() {
			statsview.Launch(output, "")
		} else {
			logger.Log(logger.Allow, "tsvm", "statsview is not available in this build")
		}
	}

	// continueCheck is called after every iteration of the run loop. only
	// iterations in the Running state have stepped the host
	var steps int
	state := govern.Running
	err = m.session.Run(func() (govern.State, error) {
		if state == govern.Running {
			steps++
		}
		switch {
		case ctx.Err() != nil || m.bios.Halted():
			state = govern.Ending
		case ropts.steps > 0 && steps >= ropts.steps:
			state = govern.Ending
		case mon != nil:
			state = mon.State()
		default:
			state = govern.Running
		}
		return state, nil
	})

	fmt.Fprintf(output, "host %s stopped after %d steps\n", m.host.ID(), steps)

	return err
}
