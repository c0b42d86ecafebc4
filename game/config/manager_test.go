package config

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mapquiz/game/region"
	"github.com/wricardo/mapquiz/game/service"
)

const testPayload = `{"type":"FeatureCollection","features":[
	{"type":"Feature","properties":{"reg_name":"Lazio","name":"Lazio"},"geometry":null},
	{"type":"Feature","properties":{"reg_name":"Umbria","name":"Umbria"},"geometry":null}]}`

// createTestDirs returns a config dir and a data dir holding the default dataset
func createTestDirs(t *testing.T) (string, string) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	writeDataFile(t, dataDir, region.Select(region.DefaultModality).Source, testPayload)
	return configDir, dataDir
}

func writeDataFile(t *testing.T, dataDir, locator, payload string) {
	path := filepath.Join(dataDir, filepath.FromSlash(locator))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create data dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatalf("Failed to write data file: %v", err)
	}
}

func writeDescriptorFile(t *testing.T, dir, name string, d region.Descriptor) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal descriptor: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write descriptor file: %v", err)
	}
}

func newTestManager(t *testing.T) (*Manager, string, string) {
	configDir, dataDir := createTestDirs(t)
	manager, err := NewManager(configDir, region.NewLoader(dataDir))
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	return manager, configDir, dataDir
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		manager, _, _ := newTestManager(t)
		if manager == nil {
			t.Error("Expected manager to be non-nil")
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path", nil)
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory has built-ins", func(t *testing.T) {
		manager, _, _ := newTestManager(t)
		datasets, err := manager.ListDatasets()
		if err != nil {
			t.Fatalf("ListDatasets failed: %v", err)
		}
		if len(datasets) != len(region.Builtins()) {
			t.Errorf("Expected %d built-in datasets, got %d", len(region.Builtins()), len(datasets))
		}
	})

	t.Run("invalid descriptor files are skipped", func(t *testing.T) {
		configDir, dataDir := createTestDirs(t)
		os.WriteFile(filepath.Join(configDir, "broken.json"), []byte("{not json"), 0644)
		writeDescriptorFile(t, configDir, "incomplete", region.Descriptor{Name: "No field"})
		os.WriteFile(filepath.Join(configDir, "notes.txt"), []byte("ignored"), 0644)

		manager, err := NewManager(configDir, region.NewLoader(dataDir))
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if _, ok := manager.Descriptor("broken"); ok {
			t.Error("Malformed descriptor must not be registered")
		}
		if _, ok := manager.Descriptor("incomplete"); ok {
			t.Error("Incomplete descriptor must not be registered")
		}
	})
}

func TestManager_DescriptorFiles(t *testing.T) {
	configDir, dataDir := createTestDirs(t)
	writeDescriptorFile(t, configDir, "lazio-only", region.Descriptor{
		Name:      "Lazio Only",
		NameField: "name",
		Source:    "/custom/lazio.geojson",
	})
	writeDataFile(t, dataDir, "/custom/lazio.geojson", testPayload)

	manager, err := NewManager(configDir, region.NewLoader(dataDir))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	d, ok := manager.Descriptor("lazio-only")
	if !ok {
		t.Fatal("Expected descriptor named after its file")
	}
	if d.NameField != "name" {
		t.Errorf("Expected name field 'name', got %s", d.NameField)
	}

	dataset, err := manager.LoadDataset(context.Background(), "lazio-only")
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	if dataset.Descriptor.ID != "lazio-only" || len(dataset.Collection.Features) != 2 {
		t.Errorf("Unexpected dataset: %s with %d features", dataset.Descriptor.ID, len(dataset.Collection.Features))
	}
}

func TestManager_LoadDataset(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		id     string
		wantID string
	}{
		{"default", region.DefaultModality, region.DefaultModality},
		{"empty id", "", region.DefaultModality},
		{"unknown id falls back", "atlantis", region.DefaultModality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dataset, err := manager.LoadDataset(ctx, tt.id)
			if err != nil {
				t.Fatalf("LoadDataset failed: %v", err)
			}
			if dataset.Descriptor.ID != tt.wantID {
				t.Errorf("Expected %s, got %s", tt.wantID, dataset.Descriptor.ID)
			}
			names := dataset.Collection.Names()
			if len(names) != 2 || names[0] != "Lazio" {
				t.Errorf("Unexpected names: %v", names)
			}
		})
	}
}

func TestManager_LoadDatasetCaching(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	first, err := manager.LoadDataset(ctx, "")
	if err != nil {
		t.Fatalf("LoadDataset failed: %v", err)
	}
	second, _ := manager.LoadDataset(ctx, region.DefaultModality)
	if first != second {
		t.Error("Expected the cached dataset to be returned")
	}

	datasets, _ := manager.ListDatasets()
	for _, d := range datasets {
		if d.DatasetID == region.DefaultModality {
			if d.Regions != 2 {
				t.Errorf("Expected 2 regions for a loaded dataset, got %d", d.Regions)
			}
			if !d.Default || !d.Builtin {
				t.Errorf("Expected default built-in dataset, got %+v", d)
			}
		}
	}

	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	third, _ := manager.LoadDataset(ctx, "")
	if third == first {
		t.Error("Expected a fresh dataset after RefreshCache")
	}
}

func TestManager_LoadDatasetErrors(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	// Built-in whose file is not present in the data dir
	_, err := manager.LoadDataset(ctx, "us-states")
	var lerr *region.LoadError
	if !errors.As(err, &lerr) {
		t.Errorf("Expected *region.LoadError, got %v", err)
	}

	_, err = manager.LoadDataset(ctx, "italian-provinces")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestManager_AdaptationError(t *testing.T) {
	manager, _, dataDir := newTestManager(t)
	writeDataFile(t, dataDir, region.Select("europe-states").Source, testPayload)

	_, err := manager.LoadDataset(context.Background(), "europe-states")
	var aerr *region.AdaptationError
	if !errors.As(err, &aerr) {
		t.Fatalf("Expected *region.AdaptationError, got %v", err)
	}
	if aerr.Field != "NAME" || aerr.Index != 0 {
		t.Errorf("Unexpected adaptation error: %+v", aerr)
	}
}

func TestManager_SetDefault(t *testing.T) {
	manager, _, _ := newTestManager(t)

	if err := manager.SetDefault("europe-states"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.DefaultDataset() != "europe-states" {
		t.Errorf("Expected europe-states, got %s", manager.DefaultDataset())
	}

	err := manager.SetDefault("atlantis")
	if !errors.Is(err, service.ErrDatasetNotFound) {
		t.Errorf("Expected ErrDatasetNotFound, got %v", err)
	}
}

func TestManager_SaveDescriptor(t *testing.T) {
	manager, configDir, dataDir := newTestManager(t)
	writeDataFile(t, dataDir, "/saved/regions.geojson", testPayload)

	d := region.Descriptor{ID: "saved", NameField: "name", Source: "/saved/regions.geojson"}
	if err := manager.SaveDescriptor(d); err != nil {
		t.Fatalf("SaveDescriptor failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(configDir, "saved.json")); err != nil {
		t.Errorf("Expected descriptor file: %v", err)
	}

	got, ok := manager.Descriptor("saved")
	if !ok {
		t.Fatal("Expected saved descriptor to be registered")
	}
	if got.Name != "saved" {
		t.Errorf("Expected name to default to id, got %q", got.Name)
	}

	// A new manager over the same dir picks the file up
	reloaded, err := NewManager(configDir, region.NewLoader(dataDir))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, ok := reloaded.Descriptor("saved"); !ok {
		t.Error("Expected saved descriptor after reload")
	}
}

func TestManager_SaveDataset(t *testing.T) {
	ctx := context.Background()

	t.Run("loaded dataset is saved and cached", func(t *testing.T) {
		manager, configDir, dataDir := newTestManager(t)
		writeDataFile(t, dataDir, "/saved/regions.geojson", testPayload)

		dataset, err := manager.SaveDataset(ctx, region.Descriptor{ID: "saved", NameField: "name", Source: "/saved/regions.geojson"})
		if err != nil {
			t.Fatalf("SaveDataset failed: %v", err)
		}
		if len(dataset.Collection.Features) != 2 {
			t.Errorf("Expected 2 features, got %d", len(dataset.Collection.Features))
		}
		if _, err := os.Stat(filepath.Join(configDir, "saved.json")); err != nil {
			t.Errorf("Expected descriptor file: %v", err)
		}

		list, _ := manager.ListDatasets()
		found := false
		for _, d := range list {
			if d.DatasetID == "saved" {
				found = true
				if d.Regions != 2 {
					t.Errorf("Expected cached region count 2, got %d", d.Regions)
				}
			}
		}
		if !found {
			t.Error("Expected saved dataset to be listed")
		}
	})

	tests := []struct {
		name    string
		d       region.Descriptor
		checkFn func(t *testing.T, err error)
	}{
		{
			name: "missing name property",
			d:    region.Descriptor{ID: "broken", NameField: "no_such_field", Source: "/broken/regions.geojson"},
			checkFn: func(t *testing.T, err error) {
				var aerr *region.AdaptationError
				if !errors.As(err, &aerr) {
					t.Errorf("Expected AdaptationError, got %v", err)
				}
			},
		},
		{
			name: "missing source",
			d:    region.Descriptor{ID: "broken", NameField: "name", Source: "/nowhere.geojson"},
			checkFn: func(t *testing.T, err error) {
				var lerr *region.LoadError
				if !errors.As(err, &lerr) {
					t.Errorf("Expected LoadError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, configDir, dataDir := newTestManager(t)
			writeDataFile(t, dataDir, "/broken/regions.geojson", testPayload)

			_, err := manager.SaveDataset(ctx, tt.d)
			tt.checkFn(t, err)

			if _, err := os.Stat(filepath.Join(configDir, "broken.json")); !os.IsNotExist(err) {
				t.Errorf("Expected no descriptor file, stat returned %v", err)
			}
			if _, ok := manager.Descriptor("broken"); ok {
				t.Error("Expected failed descriptor to stay unregistered")
			}
			list, _ := manager.ListDatasets()
			for _, d := range list {
				if d.DatasetID == "broken" {
					t.Error("Failed dataset must not be listed")
				}
			}

			// Unknown to the catalog, so requests fall back to the default
			dataset, err := manager.LoadDataset(ctx, "broken")
			if err != nil {
				t.Fatalf("LoadDataset failed: %v", err)
			}
			if dataset.Descriptor.ID != region.DefaultModality {
				t.Errorf("Expected fallback to %s, got %s", region.DefaultModality, dataset.Descriptor.ID)
			}
		})
	}
}

func TestManager_SaveDescriptorInvalid(t *testing.T) {
	manager, _, _ := newTestManager(t)

	tests := []struct {
		name string
		d    region.Descriptor
	}{
		{"missing field", region.Descriptor{ID: "x", Source: "/x.geojson"}},
		{"path in id", region.Descriptor{ID: "../escape", NameField: "name", Source: "/x.geojson"}},
		{"slash in id", region.Descriptor{ID: "a/b", NameField: "name", Source: "/x.geojson"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := manager.SaveDescriptor(tt.d); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestManager_ConcurrentLoad(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadDataset(ctx, ""); err != nil {
				errs <- err
			}
			manager.ListDatasets()
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent load failed: %v", err)
	}
}
