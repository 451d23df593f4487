// cmd/exiles-toolbelt/install.go - the install subcommand.
//
// The batch runs on a worker goroutine; this goroutine only consumes the
// event stream and renders it, so a long download or installer run never
// blocks input handling.

package main

import (
	"fmt"
	"strings"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/events"
	"github.com/exileshud/toolbelt/pkg/installer"
	"github.com/exileshud/toolbelt/pkg/session"
)

var (
	installAll bool
	installIDs []string
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install selected applications from the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load(settings.CatalogPath)
		if err != nil {
			return err
		}

		apps, err := selectApps(cat)
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("Nothing selected to install.")
			return nil
		}

		bus := events.NewBus()
		stream := bus.Subscribe(64)

		sess, err := session.Start(settings.SessionPath)
		if err != nil {
			return err
		}

		inst := installer.New(settings, bus)

		bar := progressbar.NewOptions(len(apps),
			progressbar.OptionSetDescription("Installing"),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		progress := make(chan int, len(apps)+1)
		done := make(chan installer.Summary, 1)
		go func() {
			summary := inst.RunBatch(apps, func(completed, total int) {
				progress <- completed
			})
			bus.Close()
			done <- summary
		}()

		steps := 0
		for {
			select {
			case e, ok := <-stream:
				if !ok {
					stream = nil
					break
				}
				if err := sess.Record(e); err != nil {
					log.Debugf("failed to record event: %v", err)
				}
				printEvent(e)
			case <-progress:
				steps++
				bar.Set(steps)
			}
			if stream == nil {
				break
			}
		}

		summary := <-done
		bar.Finish()

		if err := sess.Close(session.Summary{Completed: summary.Completed, Total: summary.Total}); err != nil {
			fmt.Printf("warning: failed to finalize session log: %v\n", err)
		}

		fmt.Printf("\n%d of %d applications installed successfully\n", summary.Completed, summary.Total)
		fmt.Printf("Session log: %s\n", sess.Dir())
		return nil
	},
}

func init() {
	installCmd.Flags().BoolVar(&installAll, "all", false, "install every catalog entry, optional ones included")
	installCmd.Flags().StringSliceVar(&installIDs, "id", nil, "install only the given app ids (repeatable)")
}

// selectApps picks the batch: explicit ids when given, everything with
// --all, otherwise the non-optional default selection.
func selectApps(cat *catalog.Catalog) ([]catalog.App, error) {
	if len(installIDs) > 0 {
		var apps []catalog.App
		for _, id := range installIDs {
			app, ok := cat.Find(id)
			if !ok {
				return nil, fmt.Errorf("app %q not found in catalog", id)
			}
			apps = append(apps, app)
		}
		return apps, nil
	}

	all := cat.Flatten()
	if installAll {
		return all, nil
	}
	var apps []catalog.App
	for _, app := range all {
		if !app.Optional {
			apps = append(apps, app)
		}
	}
	return apps, nil
}

func printEvent(e events.Event) {
	tag := strings.ToUpper(string(e.Level))
	fmt.Printf("%s [%-7s] %s\n", e.Time.Format("15:04:05"), tag, e.Message)
}
