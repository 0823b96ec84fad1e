package effects

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPresets reads a YAML file mapping preset names to effect specs:
//
//	radio:
//	  type: telephone
//	  mix: 0.8
//	cavern:
//	  type: reverb
//	  mix: 0.6
//	  params:
//	    decay: 4
func LoadPresets(path string) (map[string]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}

	presets := map[string]Spec{}
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	for name, spec := range presets {
		typ, err := ParseType(string(spec.Type))
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		spec.Type = typ
		presets[name] = spec
	}
	return presets, nil
}
