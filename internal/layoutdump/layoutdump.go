// Package layoutdump writes a completed link's chunk layout as YAML, an
// output-only diagnostic never read back by the linker itself (spec.md §6
// forbids config files, not diagnostic output).
package layoutdump

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/halvardk/xld/internal/link"
)

// Write marshals report as YAML to path.
func Write(path string, report *link.LayoutReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
