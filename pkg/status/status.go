// pkg/status/status.go - installed-software inventory.
//
// Inventory is informational: the dispatcher never skips a descriptor
// because something looks installed already.

package status

import (
	"strings"

	"github.com/hashicorp/go-version"
)

// Program is one installed application as recorded by the system.
type Program struct {
	Name      string
	Version   string
	Publisher string
}

// Find returns the first installed program whose name contains needle,
// case-insensitively.
func Find(programs []Program, needle string) (Program, bool) {
	lower := strings.ToLower(needle)
	for _, p := range programs {
		if strings.Contains(strings.ToLower(p.Name), lower) {
			return p, true
		}
	}
	return Program{}, false
}

// IsOlder reports whether installed is an older version than candidate.
// Unparseable versions fall back to a plain inequality check, which at
// least flags a difference.
func IsOlder(installed, candidate string) bool {
	iv, err1 := version.NewVersion(installed)
	cv, err2 := version.NewVersion(candidate)
	if err1 != nil || err2 != nil {
		return installed != candidate
	}
	return iv.LessThan(cv)
}
