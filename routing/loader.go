package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* Loader manages event bindings from events.yaml
 * Provides in-memory lookup for fast access
 */

// Config represents the structure of events.yaml
type Config struct {
	Events []BindingConfig `yaml:"events"`
}

// BindingConfig represents a single binding in the YAML file
type BindingConfig struct {
	EventType string `yaml:"event_type"`
	Action    string `yaml:"action"`
	Disabled  bool   `yaml:"disabled"` // Optional: keep the entry but skip registration
}

// Loader holds the loaded bindings
type Loader struct {
	bindings map[string]*Binding
}

// NewLoader creates a new binding loader
func NewLoader() *Loader {
	return &Loader{
		bindings: make(map[string]*Binding),
	}
}

// Load reads and parses the events.yaml file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading events file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing events YAML: %w", err)
	}

	for _, bc := range config.Events {
		binding := &Binding{
			EventType: bc.EventType,
			Action:    bc.Action,
			Disabled:  bc.Disabled,
		}

		if err := binding.Validate(); err != nil {
			return fmt.Errorf("validating binding: %w", err)
		}

		l.bindings[binding.EventType] = binding
	}

	return nil
}

// Get retrieves a binding by event type
func (l *Loader) Get(eventType string) (*Binding, error) {
	binding, exists := l.bindings[eventType]
	if !exists {
		return nil, fmt.Errorf("binding not found: %s", eventType)
	}
	return binding, nil
}

// List returns all loaded bindings
func (l *Loader) List() []*Binding {
	bindings := make([]*Binding, 0, len(l.bindings))
	for _, binding := range l.bindings {
		bindings = append(bindings, binding)
	}
	return bindings
}

// Exists checks if an event type has a binding
func (l *Loader) Exists(eventType string) bool {
	_, exists := l.bindings[eventType]
	return exists
}
