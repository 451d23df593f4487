// cmd/exiles-toolbelt/doctor.go - the doctor subcommand: audit catalog links.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/doctor"
)

var doctorWinget bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Audit catalog links, GitHub assets and winget ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(settings.CatalogPath)
		if err != nil {
			return err
		}

		d := doctor.New(settings.GitHubAPIURL)
		d.CheckWinget = doctorWinget

		findings := d.Audit(cat.Flatten())
		if len(findings) == 0 {
			fmt.Println("No issues found.")
			return nil
		}

		for _, f := range findings {
			fmt.Printf("[%s] %s (%s): %s\n", f.Source, f.AppName, f.AppID, f.Message)
		}
		fmt.Printf("%d issue(s) found\n", len(findings))
		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorWinget, "winget", false, "also verify winget ids (requires winget on PATH)")
}
