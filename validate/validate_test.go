package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/mapquiz/game/region"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Messages {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidateDescriptor(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		content   string
		wantValid bool
		wantMsg   string
	}{
		{
			name:      "valid file descriptor",
			file:      "france.json",
			content:   `{"id":"france","name":"French Regions","name_field":"nom","source":"/assets/private/france.geojson"}`,
			wantValid: true,
			wantMsg:   "Name field: nom",
		},
		{
			name:      "valid remote descriptor without id",
			file:      "world.json",
			content:   `{"name_field":"ADMIN","source":"https://example.com/world.geojson"}`,
			wantValid: true,
			wantMsg:   "ID: world",
		},
		{
			name:      "invalid JSON",
			file:      "broken.json",
			content:   `{"id": "broken", invalid}`,
			wantValid: false,
			wantMsg:   "Invalid JSON",
		},
		{
			name:      "id does not match file",
			file:      "spain.json",
			content:   `{"id":"portugal","name_field":"name","source":"/p.geojson"}`,
			wantValid: false,
			wantMsg:   "does not match file name",
		},
		{
			name:      "missing name field",
			file:      "spain.json",
			content:   `{"id":"spain","source":"/spain.geojson"}`,
			wantValid: false,
			wantMsg:   "name_field is required",
		},
		{
			name:      "missing source",
			file:      "spain.json",
			content:   `{"id":"spain","name_field":"name"}`,
			wantValid: false,
			wantMsg:   "source is required",
		},
		{
			name:      "unsupported source",
			file:      "spain.json",
			content:   `{"id":"spain","name_field":"name","source":"/spain.shp"}`,
			wantValid: false,
			wantMsg:   "must be an http(s) URL",
		},
		{
			name:      "path escape",
			file:      "spain.json",
			content:   `{"id":"spain","name_field":"name","source":"/../../etc/spain.geojson"}`,
			wantValid: false,
			wantMsg:   "must not contain '..'",
		},
		{
			name:      "unsafe id",
			file:      "Spain Regions.json",
			content:   `{"name_field":"name","source":"/spain.geojson"}`,
			wantValid: false,
			wantMsg:   "must be lowercase letters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			result := validateDescriptor(context.Background(), path, nil)
			if result.Valid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v: %v", tt.wantValid, result.Valid, result.Messages)
			}
			if !hasMessage(result, tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %v", tt.wantMsg, result.Messages)
			}
			if result.File != tt.file {
				t.Errorf("Expected file name %s, got %s", tt.file, result.File)
			}
		})
	}
}

func TestValidateDescriptor_MissingFile(t *testing.T) {
	result := validateDescriptor(context.Background(), "/non/existent/file.json", nil)

	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Messages)
	}
}

func TestValidateDescriptor_LoadsDataset(t *testing.T) {
	const descriptor = `{"id":"tiny","name_field":"name","source":"/geo/tiny.geojson"}`

	tests := []struct {
		name      string
		payload   string
		wantValid bool
		wantMsg   string
	}{
		{
			name:      "named features",
			payload:   `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Tirol"},"geometry":null},{"type":"Feature","properties":{"name":"Wien"},"geometry":null}]}`,
			wantValid: true,
			wantMsg:   "Regions: 2",
		},
		{
			name:      "feature without name",
			payload:   `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Tirol"},"geometry":null},{"type":"Feature","properties":{"NAME":"Wien"},"geometry":null}]}`,
			wantValid: false,
			wantMsg:   "Feature 1 has no usable",
		},
		{
			name:      "duplicate names",
			payload:   `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":"Wien"},"geometry":null},{"type":"Feature","properties":{"name":" Wien "},"geometry":null}]}`,
			wantValid: false,
			wantMsg:   "Duplicate region names",
		},
		{
			name:      "empty collection",
			payload:   `{"type":"FeatureCollection","features":[]}`,
			wantValid: false,
			wantMsg:   "no features",
		},
		{
			name:      "not a collection",
			payload:   `{"type":"Feature","properties":{}}`,
			wantValid: false,
			wantMsg:   "Failed to load dataset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configDir := t.TempDir()
			dataDir := t.TempDir()
			path := writeFile(t, configDir, "tiny.json", descriptor)
			writeFile(t, dataDir, "geo/tiny.geojson", tt.payload)

			result := validateDescriptor(context.Background(), path, region.NewLoader(dataDir))
			if result.Valid != tt.wantValid {
				t.Errorf("Expected valid=%v, got %v: %v", tt.wantValid, result.Valid, result.Messages)
			}
			if !hasMessage(result, tt.wantMsg) {
				t.Errorf("Expected message containing %q, got %v", tt.wantMsg, result.Messages)
			}
		})
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"id":"good","name_field":"name","source":"/good.geojson"}`)
	writeFile(t, dir, "bad.json", `{"id":"bad"}`)
	writeFile(t, dir, "notes.txt", "ignored")

	results, err := validateDir(context.Background(), dir, nil)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	valid := map[string]bool{}
	for _, r := range results {
		valid[r.File] = r.Valid
	}
	if !valid["good.json"] || valid["bad.json"] {
		t.Errorf("Unexpected results: %v", valid)
	}
}

func TestShippedDescriptors(t *testing.T) {
	if _, err := os.Stat("../configs"); os.IsNotExist(err) {
		t.Skip("Skipping test - configs directory not found")
	}

	results, err := validateDir(context.Background(), "../configs", nil)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	for _, r := range results {
		if !r.Valid {
			t.Errorf("%s is invalid: %v", r.File, r.Messages)
		}
	}
}
