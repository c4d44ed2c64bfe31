package catalog

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest records what the last build produced.
type Manifest struct {
	BuiltAt         time.Time      `yaml:"built_at" json:"built_at"`
	BaseURL         string         `yaml:"base_url" json:"base_url"`
	Agency          string         `yaml:"agency" json:"agency"`
	UsefulDataflows []string       `yaml:"useful_dataflows" json:"useful_dataflows"`
	Files           map[string]int `yaml:"files" json:"files"`
	Steps           []StepResult   `yaml:"steps" json:"steps"`
}

// StepResult is the outcome of one build step.
type StepResult struct {
	ID      string        `yaml:"id" json:"id"`
	Records int           `yaml:"records" json:"records"`
	Elapsed time.Duration `yaml:"elapsed" json:"elapsed"`
	Error   string        `yaml:"error,omitempty" json:"error,omitempty"`
}

// Failed reports whether any step of the build failed.
func (m *Manifest) Failed() bool {
	for _, s := range m.Steps {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeFileAtomic(path, data)
}
