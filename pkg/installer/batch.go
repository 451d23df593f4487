// pkg/installer/batch.go - sequential batch orchestration.
//
// Descriptors are processed strictly in the order given. Installers mutate
// shared system state (registry, PATH, driver stacks), so there is no
// descriptor-level parallelism.

package installer

import (
	log "github.com/sirupsen/logrus"

	"github.com/exileshud/toolbelt/pkg/catalog"
	"github.com/exileshud/toolbelt/pkg/events"
)

// Summary is the aggregate outcome of one batch run.
type Summary struct {
	Completed int
	Total     int
}

// RunBatch installs the given applications one after another. A failed
// descriptor never aborts the batch. onProgress, if non-nil, receives the
// aggregate (completed, total) after each descriptor.
func (i *Installer) RunBatch(apps []catalog.App, onProgress func(completed, total int)) Summary {
	total := len(apps)
	completed := 0

	for _, app := range apps {
		ev := events.NewEmitter(i.Events, app.Name)
		ev.Info("Installing: %s", app.Name)
		log.Infof("Installing %s (%s)", app.Name, app.ID)

		if i.Install(app) {
			ev.Success("✓ %s installed successfully", app.Name)
			completed++
		} else {
			ev.Error("✗ Failed to install %s", app.Name)
		}

		if onProgress != nil {
			onProgress(completed, total)
		}
	}

	log.Infof("Batch finished: %d of %d succeeded", completed, total)
	return Summary{Completed: completed, Total: total}
}
