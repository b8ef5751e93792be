package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/scottcrosby-securebine/juniper-mcp-v1/pkg/util"
)

// Registry is the in-memory device inventory. Lookups and listing take a
// read lock; Register is the single mutation path and takes the write
// lock. Names preserves inventory-file insertion order.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]*DeviceDescriptor
	names   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]*DeviceDescriptor)}
}

// LoadFile reads an inventory file (JSON, or YAML when the path ends in
// .yaml/.yml) and validates every entry. A malformed entry fails the whole
// load with an error naming the device and field.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory %s: %w", path, err)
	}

	var entries []entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = parseYAML(data)
	default:
		entries, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing inventory %s: %w", path, err)
	}

	r := NewRegistry()
	var problems []string
	for _, e := range entries {
		if err := e.desc.Validate(e.name); err != nil {
			problems = append(problems, err.Error())
			continue
		}
		if err := r.Register(e.name, e.desc, false); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return nil, util.ConfigError("inventory validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	util.Infof("Loaded and validated %d device(s) from %s", r.Len(), path)
	return r, nil
}

type entry struct {
	name string
	desc *DeviceDescriptor
}

// parseJSON walks the top-level object token by token so the registry
// keeps the file's device order.
func parseJSON(data []byte) ([]entry, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object mapping device names to descriptors")
	}

	var entries []entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}
		var d DeviceDescriptor
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}
		entries = append(entries, entry{name: name, desc: &d})
	}
	return entries, nil
}

func parseYAML(data []byte) ([]entry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a YAML mapping of device names to descriptors")
	}

	var entries []entry
	for i := 0; i+1 < len(doc.Content); i += 2 {
		name := doc.Content[i].Value
		var d DeviceDescriptor
		if err := doc.Content[i+1].Decode(&d); err != nil {
			return nil, fmt.Errorf("device %q: %w", name, err)
		}
		entries = append(entries, entry{name: name, desc: &d})
	}
	return entries, nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (*DeviceDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[name]
	if !ok {
		return nil, util.NotFoundError("device %q not found in the device mapping", name)
	}
	return d, nil
}

// Names returns the device names in insertion order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Register validates and inserts a descriptor. Registering an existing
// name fails with a ConflictError unless overwrite is set.
func (r *Registry) Register(name string, d *DeviceDescriptor, overwrite bool) error {
	if name == "" {
		return util.ConfigError("device name must not be empty")
	}
	if err := d.Validate(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[name]; exists {
		if !overwrite {
			return util.ConflictError("device %q already exists", name)
		}
	} else {
		r.names = append(r.names, name)
	}
	r.devices[name] = d
	return nil
}

// SaveTo writes the inventory as indented JSON. Used by the CLI
// inventory-editing path, never by the runtime register operation.
func (r *Registry) SaveTo(path string) error {
	r.mu.RLock()
	out := make(map[string]*DeviceDescriptor, len(r.devices))
	for name, d := range r.devices {
		out[name] = d
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
