package region

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultModality is used whenever a modality identifier is not recognized
const DefaultModality = "italian-regions"

var builtins = []Descriptor{
	{
		ID:          "italian-regions",
		Name:        "Italian Regions",
		Description: "The 20 regions of Italy",
		NameField:   "reg_name",
		Source:      "/assets/private/italy_regions.geojson",
	},
	{
		ID:          "italian-provinces",
		Name:        "Italian Provinces",
		Description: "The provinces of Italy",
		NameField:   "prov_name",
		Source:      "/assets/private/italy_provinces.geojson",
	},
	{
		ID:          "europe-states",
		Name:        "European States",
		Description: "Sovereign states of Europe",
		NameField:   "NAME",
		Source:      "/assets/private/europe.geojson",
	},
	{
		ID:          "albania-regions",
		Name:        "Albanian Regions",
		Description: "The counties of Albania",
		NameField:   "name",
		Source:      "/assets/private/albania-with-regions.geojson",
	},
	{
		ID:          "austria-regions",
		Name:        "Austrian States",
		Description: "The federal states of Austria",
		NameField:   "name",
		Source:      "/assets/private/austria-regions.geojson",
	},
	{
		ID:          "germany-states",
		Name:        "German States",
		Description: "The federal states of Germany",
		NameField:   "name",
		Source:      "/assets/private/germany.geojson",
	},
	{
		ID:          "roman-empire",
		Name:        "Roman Empire",
		Description: "Provinces of the Roman Empire",
		NameField:   "name",
		Source:      "/assets/private/roman-empire.geojson",
	},
	{
		ID:          "us-states",
		Name:        "United States",
		Description: "The states of the United States",
		NameField:   "name",
		Source:      "/assets/private/us-states.geojson",
	},
}

// Builtins returns the datasets known without any descriptor files
func Builtins() []Descriptor {
	out := make([]Descriptor, len(builtins))
	copy(out, builtins)
	return out
}

// Select maps a modality identifier to its built-in descriptor. Unknown
// identifiers silently select the default dataset.
func Select(modality string) Descriptor {
	for _, d := range builtins {
		if d.ID == modality {
			return d
		}
	}
	for _, d := range builtins {
		if d.ID == DefaultModality {
			return d
		}
	}
	return builtins[0]
}

// ValidateDescriptor checks a descriptor supplied from outside the built-ins
func ValidateDescriptor(d Descriptor) error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDescriptor)
	}
	if d.NameField == "" {
		return fmt.Errorf("%w: name_field is required", ErrInvalidDescriptor)
	}
	if d.Source == "" {
		return fmt.Errorf("%w: source is required", ErrInvalidDescriptor)
	}
	return nil
}

// Registry is a mutable strategy table from modality identifier to descriptor,
// seeded with the built-ins
type Registry struct {
	descriptors map[string]Descriptor
	fallback    string
	mu          sync.RWMutex
}

// NewRegistry creates a registry holding the built-in descriptors
func NewRegistry() *Registry {
	r := &Registry{
		descriptors: make(map[string]Descriptor, len(builtins)),
		fallback:    DefaultModality,
	}
	for _, d := range builtins {
		r.descriptors[d.ID] = d
	}
	return r
}

// Register adds or replaces a descriptor
func (r *Registry) Register(d Descriptor) error {
	if err := ValidateDescriptor(d); err != nil {
		return err
	}
	if d.Name == "" {
		d.Name = d.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.descriptors[d.ID] = d
	return nil
}

// Lookup returns the descriptor registered under id
func (r *Registry) Lookup(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[id]
	return d, ok
}

// Select returns the descriptor for a modality, falling back to the default
// dataset without error when the modality is unknown
func (r *Registry) Select(modality string) Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.descriptors[modality]; ok {
		return d
	}
	if d, ok := r.descriptors[r.fallback]; ok {
		return d
	}
	return Select(modality)
}

// List returns all descriptors sorted by id
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
