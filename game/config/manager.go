package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/wricardo/mapquiz/game/region"
	"github.com/wricardo/mapquiz/game/service"
)

var (
	ErrInvalidConfig = errors.New("invalid dataset configuration")
)

// Manager is the dataset catalog: descriptor files and built-ins resolved
// through a region.Registry, with loaded collections cached per dataset
type Manager struct {
	configDir   string
	loader      *region.Loader
	registry    *region.Registry
	defaultID   string
	collections map[string]*service.Dataset
	mu          sync.RWMutex
}

// NewManager creates a dataset catalog reading descriptor files from configDir
func NewManager(configDir string, loader *region.Loader) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}
	if loader == nil {
		loader = region.NewLoader("")
	}

	m := &Manager{
		configDir:   configDir,
		loader:      loader,
		registry:    region.NewRegistry(),
		defaultID:   region.DefaultModality,
		collections: make(map[string]*service.Dataset),
	}

	if err := m.loadDescriptors(); err != nil {
		return nil, fmt.Errorf("failed to load descriptors: %w", err)
	}

	return m, nil
}

// loadDescriptors registers every *.json descriptor file of the config directory.
// Invalid files are skipped.
func (m *Manager) loadDescriptors() error {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return fmt.Errorf("failed to read config directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		d, err := m.readDescriptor(entry.Name())
		if err != nil {
			log.Printf("Skipping dataset descriptor %s: %v", entry.Name(), err)
			continue
		}
		if err := m.descriptors().Register(d); err != nil {
			log.Printf("Skipping dataset descriptor %s: %v", entry.Name(), err)
		}
	}
	return nil
}

func (m *Manager) readDescriptor(filename string) (region.Descriptor, error) {
	var d region.Descriptor

	data, err := os.ReadFile(filepath.Join(m.configDir, filename))
	if err != nil {
		return d, fmt.Errorf("failed to read descriptor: %w", err)
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// The file name is the identifier when the file does not carry one
	if d.ID == "" {
		d.ID = strings.TrimSuffix(filename, ".json")
	}
	return d, nil
}

// Descriptor returns the descriptor registered under id, without fallback
func (m *Manager) Descriptor(id string) (region.Descriptor, bool) {
	return m.descriptors().Lookup(id)
}

func (m *Manager) descriptors() *region.Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registry
}

// LoadDataset resolves id to a dataset and loads its collection once.
// Empty or unknown identifiers resolve to the default dataset.
func (m *Manager) LoadDataset(ctx context.Context, id string) (*service.Dataset, error) {
	desc := m.resolve(id)

	m.mu.RLock()
	if dataset, exists := m.collections[desc.ID]; exists {
		m.mu.RUnlock()
		return dataset, nil
	}
	m.mu.RUnlock()

	collection, err := m.loader.Load(ctx, desc)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Another caller may have loaded it meanwhile
	if dataset, exists := m.collections[desc.ID]; exists {
		return dataset, nil
	}

	dataset := &service.Dataset{Descriptor: desc, Collection: collection}
	m.collections[desc.ID] = dataset
	log.Printf("Loaded dataset %s: %d regions from %s", desc.ID, len(collection.Features), desc.Source)
	return dataset, nil
}

func (m *Manager) resolve(id string) region.Descriptor {
	if id == "" {
		id = m.DefaultDataset()
	}
	registry := m.descriptors()
	if d, ok := registry.Lookup(id); ok {
		return d
	}

	d, ok := registry.Lookup(m.DefaultDataset())
	if !ok {
		d = registry.Select(id)
	}
	log.Printf("Unknown dataset %q, using %s", id, d.ID)
	return d
}

// ListDatasets returns information about all registered datasets
func (m *Manager) ListDatasets() ([]*service.DatasetInfo, error) {
	builtin := make(map[string]bool)
	for _, d := range region.Builtins() {
		builtin[d.ID] = true
	}
	defaultID := m.DefaultDataset()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var datasets []*service.DatasetInfo
	for _, d := range m.registry.List() {
		info := &service.DatasetInfo{
			DatasetID:   d.ID,
			Name:        d.Name,
			Description: d.Description,
			NameField:   d.NameField,
			Source:      d.Source,
			Builtin:     builtin[d.ID],
			Default:     d.ID == defaultID,
		}
		if loaded, ok := m.collections[d.ID]; ok {
			info.Regions = len(loaded.Collection.Features)
		}
		datasets = append(datasets, info)
	}

	return datasets, nil
}

// DefaultDataset returns the identifier used for empty or unknown dataset requests
func (m *Manager) DefaultDataset() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID
}

// SetDefault sets the default dataset by identifier
func (m *Manager) SetDefault(id string) error {
	if _, ok := m.descriptors().Lookup(id); !ok {
		return fmt.Errorf("%w: %s", service.ErrDatasetNotFound, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = id
	return nil
}

// RefreshCache drops loaded collections and rereads descriptor files from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.collections = make(map[string]*service.Dataset)
	m.registry = region.NewRegistry()
	m.mu.Unlock()

	return m.loadDescriptors()
}

// SaveDataset loads the dataset a candidate descriptor points at and, only
// when that succeeds, writes the descriptor file, registers it and caches the
// collection. A failed load leaves the catalog untouched.
func (m *Manager) SaveDataset(ctx context.Context, d region.Descriptor) (*service.Dataset, error) {
	if err := region.ValidateDescriptor(d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d.Name == "" {
		d.Name = d.ID
	}

	collection, err := m.loader.Load(ctx, d)
	if err != nil {
		return nil, err
	}

	if err := m.SaveDescriptor(d); err != nil {
		return nil, err
	}

	dataset := &service.Dataset{Descriptor: d, Collection: collection}
	m.mu.Lock()
	m.collections[d.ID] = dataset
	m.mu.Unlock()

	log.Printf("Saved dataset %s: %d regions from %s", d.ID, len(collection.Features), d.Source)
	return dataset, nil
}

// SaveDescriptor writes a descriptor file and registers it
func (m *Manager) SaveDescriptor(d region.Descriptor) error {
	if err := region.ValidateDescriptor(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if strings.ContainsAny(d.ID, `/\`) || strings.Contains(d.ID, "..") {
		return fmt.Errorf("%w: id %q is not a valid file name", ErrInvalidConfig, d.ID)
	}
	if d.Name == "" {
		d.Name = d.ID
	}

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	path := filepath.Join(m.configDir, d.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor file: %w", err)
	}

	if err := m.descriptors().Register(d); err != nil {
		return err
	}

	// A replaced descriptor may point at a different source
	m.mu.Lock()
	delete(m.collections, d.ID)
	m.mu.Unlock()

	return nil
}
