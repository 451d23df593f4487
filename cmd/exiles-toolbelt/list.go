// cmd/exiles-toolbelt/list.go - the list subcommand.

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/status"
)

var listInstalled bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(settings.CatalogPath)
		if err != nil {
			return err
		}

		var installed []status.Program
		if listInstalled {
			installed, err = status.InstalledPrograms()
			if err != nil {
				return fmt.Errorf("failed to read installed programs: %w", err)
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tFLAGS\tSTATUS")
		for _, app := range cat.Flatten() {
			flags := ""
			if app.Optional {
				flags += "optional "
			}
			if app.RequiresAdmin {
				flags += "admin"
			}
			state := ""
			if listInstalled {
				if p, ok := status.Find(installed, app.Name); ok {
					state = "installed"
					if p.Version != "" {
						state += " " + p.Version
					}
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				app.ID, app.Name, app.EffectiveMethod().Type, flags, state)
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listInstalled, "installed", false, "annotate entries found in the installed-programs inventory")
}
