//go:build !windows

package status

// InstalledPrograms has nothing to report off Windows; the catalog targets
// Windows tooling.
func InstalledPrograms() ([]Program, error) {
	return nil, nil
}
