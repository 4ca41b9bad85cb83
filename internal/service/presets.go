package service

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pagebuilder/internal/domain"
)

// presetFile is the YAML shape of a user preset. The section uses the
// same field names as the page document.
type presetFile struct {
	Key     string         `yaml:"key"`
	Name    string         `yaml:"name"`
	Section map[string]any `yaml:"section"`
}

// LoadPresets returns the built-in presets merged with every *.yaml or
// *.yml file in dir. A file whose key matches a built-in replaces it. An
// empty or missing dir yields the built-ins alone; unreadable files are
// logged and skipped.
func LoadPresets(dir string) (map[string]domain.Preset, error) {
	presets := domain.BuiltinPresets()
	if dir == "" {
		return presets, nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return presets, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read presets dir: %w", err)
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := loadPreset(path)
		if err != nil {
			log.Printf("presets: skip %s: %v", path, err)
			continue
		}
		presets[p.Key] = p
	}
	return presets, nil
}

func loadPreset(path string) (domain.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Preset{}, err
	}
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Preset{}, fmt.Errorf("parse yaml: %w", err)
	}
	if f.Key == "" {
		f.Key = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if f.Name == "" {
		f.Name = f.Key
	}
	if f.Section == nil {
		return domain.Preset{}, fmt.Errorf("preset %s has no section", f.Key)
	}

	// The document types decode from JSON, so the YAML tree is re-encoded.
	raw, err := json.Marshal(f.Section)
	if err != nil {
		return domain.Preset{}, fmt.Errorf("encode section: %w", err)
	}
	var sec domain.Section
	if err := json.Unmarshal(raw, &sec); err != nil {
		return domain.Preset{}, fmt.Errorf("decode section: %w", err)
	}
	if sec.Kind == "" {
		sec.Kind = domain.SectionKind
	}
	if sec.ID == "" {
		sec.ID = "tpl"
	}
	return domain.Preset{Key: f.Key, Name: f.Name, Section: &sec}, nil
}
