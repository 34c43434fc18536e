package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelsFile is the parsed model -> processor mapping
type ModelsFile struct {
	Models []ModelEntry `yaml:"models"`
}

// ModelEntry maps one model id to the processor that serves it
type ModelEntry struct {
	Model     string `yaml:"model"`
	Processor string `yaml:"processor"`
}

// Valid reports whether both the model id and processor name are set
func (e ModelEntry) Valid() bool {
	return e.Model != "" && e.Processor != ""
}

// LoadModelsFile reads the YAML models file at path.
// A missing or unparsable file is an error; entry-level validation is left to the registry.
func LoadModelsFile(path string) (*ModelsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file %q: %w", path, err)
	}

	var file ModelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse models file %q: %w", path, err)
	}

	return &file, nil
}
