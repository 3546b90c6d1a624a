package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestName is the per-project file that declares extra commands.
const ManifestName = "workbench.yaml"

// Manifest is the on-disk shape of a project command manifest.
type Manifest struct {
	Commands []Descriptor `yaml:"commands"`
}

// LoadManifest reads a manifest file. A missing file is not an error —
// projects without custom commands are the common case.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// RegisterManifest loads the project manifest under root (if any) and
// registers its commands. Manifest commands have no factory, so they
// run with default hooks.
func RegisterManifest(r *Registry, root string) error {
	m, err := LoadManifest(filepath.Join(root, ManifestName))
	if err != nil {
		return err
	}
	if m == nil {
		return nil
	}
	for i := range m.Commands {
		d := m.Commands[i]
		if err := r.Register(&d); err != nil {
			return fmt.Errorf("manifest command: %w", err)
		}
	}
	return nil
}
