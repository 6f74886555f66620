package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Model describes one purifier model sold on the site: display data and
// the command types its firmware understands. Informational only, the
// queue never validates payloads against it.
type Model struct {
	Model    string        `yaml:"model" json:"model"`
	Name     string        `yaml:"name" json:"name"`
	Firmware string        `yaml:"firmware" json:"firmware"`
	Commands []CommandSpec `yaml:"commands" json:"commands"`
}

type CommandSpec struct {
	Type        string `yaml:"type" json:"type"`
	Description string `yaml:"description" json:"description"`
}

type Loader struct {
	cache       sync.Map
	searchPaths []string
}

func NewLoader(searchPaths []string) *Loader {
	return &Loader{searchPaths: searchPaths}
}

func (l *Loader) Load(model string) (*Model, error) {
	// Cache-Check
	if cached, ok := l.cache.Load(model); ok {
		return cached.(*Model), nil
	}

	var data []byte
	var err error
	var foundPath string

	for _, searchPath := range l.searchPaths {
		fullPath := filepath.Join(searchPath, model+".yaml")
		data, err = os.ReadFile(fullPath)
		if err == nil {
			foundPath = fullPath
			break
		}
	}

	if data == nil {
		return nil, fmt.Errorf("model not found: %s (searched in: %v)", model, l.searchPaths)
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", foundPath, err)
	}

	l.cache.Store(model, &m)

	return &m, nil
}

// LoadAll reads every model file from the search paths.
func (l *Loader) LoadAll() ([]Model, error) {
	models := make([]Model, 0)

	for _, searchPath := range l.searchPaths {
		entries, err := os.ReadDir(searchPath)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
				continue
			}

			name := strings.TrimSuffix(entry.Name(), ".yaml")
			m, err := l.Load(name)
			if err != nil {
				return nil, err
			}
			models = append(models, *m)
		}
	}

	return models, nil
}

func (l *Loader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}
