package config

import (
	"embed"

	"gopkg.in/yaml.v3"
)

//go:embed builtins.yaml
var builtinsFS embed.FS

// Preset is a built-in validator query-command default, such as the ones
// for "sqlite" and "osquery". This catalog is the single source of truth
// for those defaults; dispatch.DefaultExecCommand delegates to it.
type Preset struct {
	QueryCommand string `yaml:"query_command"`
}

// Builtins is the parsed form of builtins.yaml, the embedded catalog of
// validator-name defaults shipped with the binary. Grounded on
// config/builtin_rules.go and config/defaults.go's pattern of a package-level
// map literal describing built-in presets, adapted here to an embedded YAML
// asset parsed with gopkg.in/yaml.v3 so the catalog can be extended without
// a recompile of the Go literal.
var Builtins = mustLoadBuiltins()

func mustLoadBuiltins() map[string]Preset {
	data, err := builtinsFS.ReadFile("builtins.yaml")
	if err != nil {
		panic("config: embedded builtins.yaml missing: " + err.Error())
	}
	var presets map[string]Preset
	if err := yaml.Unmarshal(data, &presets); err != nil {
		panic("config: embedded builtins.yaml malformed: " + err.Error())
	}
	return presets
}

// QueryCommandFor returns the built-in default query command for a
// validator name, and false if no preset is registered for that name.
func QueryCommandFor(name string) (string, bool) {
	preset, ok := Builtins[name]
	if !ok {
		return "", false
	}
	return preset.QueryCommand, true
}
