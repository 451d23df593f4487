// pkg/blocking/blocking.go - checks for applications that must not be
// running while an install mutates shared system state.

package blocking

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"
)

// IsAppRunning checks if a specific application is currently running.
// Names are compared case-insensitively, with or without the .exe suffix.
func IsAppRunning(appName string) bool {
	procs, err := process.Processes()
	if err != nil {
		log.Errorf("Failed to get process list: %v", err)
		return false
	}

	clean := strings.ToLower(appName)
	for _, proc := range procs {
		name, err := proc.Name()
		if err != nil {
			continue
		}
		procName := strings.ToLower(name)
		if procName == clean || procName == clean+".exe" {
			log.Debugf("Found running app %s (process %s)", appName, procName)
			return true
		}
	}
	return false
}

// Running returns which of the given applications are currently running.
func Running(appNames []string) []string {
	var running []string
	for _, name := range appNames {
		if IsAppRunning(name) {
			running = append(running, name)
		}
	}
	return running
}
