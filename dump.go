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
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/curioustorvald/tsvm/session"
	"github.com/spf13/cobra"
)

func newDumpCommand(opts *options) *cobra.Command {
	var steps int
	var output string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write a graph of the host state in dot format",
		Long: "Boot a host, step it the number of times given by --steps and write " +
			"a memviz graph of the host snapshot. The output can be rendered " +
			"with graphviz.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := opts.newMachine(session.Params{})
			if err != nil {
				return err
			}
			defer m.close()

			if err := m.host.RunForSteps(steps); err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("dump: %w", err)
				}
				defer f.Close()
				w = f
			}

			memviz.Map(w, m.host.Snapshot())

			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps to run before the snapshot")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file. defaults to stdout")

	return cmd
}
