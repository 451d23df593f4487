//go:build windows

// pkg/status/status_windows.go - inventory from the Windows uninstall
// registry hives.

package status

import (
	"golang.org/x/sys/windows/registry"
)

var uninstallRoots = []struct {
	key  registry.Key
	path string
}{
	{registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
	{registry.LOCAL_MACHINE, `SOFTWARE\WOW6432Node\Microsoft\Windows\CurrentVersion\Uninstall`},
	{registry.CURRENT_USER, `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall`},
}

// InstalledPrograms enumerates the uninstall registry keys. Entries without
// a DisplayName are skipped, matching what Add/Remove Programs shows.
func InstalledPrograms() ([]Program, error) {
	var programs []Program

	for _, root := range uninstallRoots {
		key, err := registry.OpenKey(root.key, root.path, registry.ENUMERATE_SUB_KEYS)
		if err != nil {
			continue
		}

		names, err := key.ReadSubKeyNames(-1)
		if err != nil {
			key.Close()
			continue
		}

		for _, name := range names {
			sub, err := registry.OpenKey(root.key, root.path+`\`+name, registry.QUERY_VALUE)
			if err != nil {
				continue
			}
			displayName, _, err := sub.GetStringValue("DisplayName")
			if err != nil || displayName == "" {
				sub.Close()
				continue
			}
			displayVersion, _, _ := sub.GetStringValue("DisplayVersion")
			publisher, _, _ := sub.GetStringValue("Publisher")
			programs = append(programs, Program{
				Name:      displayName,
				Version:   displayVersion,
				Publisher: publisher,
			})
			sub.Close()
		}
		key.Close()
	}

	return programs, nil
}
