// Command validate checks dataset descriptor JSON files. Usage:
//
//	validate [config-dir] [data-dir]
//
// The config directory defaults to ../configs. For every *.json file it checks:
//   - JSON structure and required fields (id, name_field, source)
//   - The id matches the file name and is safe to use as one
//   - The source is an http(s) URL or a path to a .geojson or .json file
//
// When a data directory is given, each dataset is also loaded to verify that
// every feature yields a unique, non-empty canonical name.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/wricardo/mapquiz/game/region"
)

var validID = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Messages = append(r.Messages, "✓ "+fmt.Sprintf(format, args...))
}

// validateDescriptor loads and validates a single descriptor file. A non-nil
// loader also loads the dataset it describes.
func validateDescriptor(ctx context.Context, filePath string, loader *region.Loader) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var d region.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	stem := strings.TrimSuffix(result.File, filepath.Ext(result.File))
	if d.ID == "" {
		d.ID = stem
	} else if d.ID != stem {
		result.fail("id %q does not match file name %q", d.ID, stem)
	}
	if !validID.MatchString(d.ID) {
		result.fail("id %q must be lowercase letters, digits, '-' or '_'", d.ID)
	}

	if err := region.ValidateDescriptor(d); err != nil {
		result.fail("%v", err)
	}

	if d.Source != "" {
		lower := strings.ToLower(d.Source)
		remote := strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
		if !remote && !strings.HasSuffix(lower, ".geojson") && !strings.HasSuffix(lower, ".json") {
			result.fail("source %q must be an http(s) URL or a .geojson/.json path", d.Source)
		}
		if !remote && strings.Contains(d.Source, "..") {
			result.fail("source %q must not contain '..'", d.Source)
		}
	}

	if !result.Valid {
		return result
	}

	result.info("ID: %s", d.ID)
	if d.Name != "" {
		result.info("Name: %s", d.Name)
	}
	result.info("Name field: %s", d.NameField)
	result.info("Source: %s", d.Source)

	if loader != nil {
		validateDataset(ctx, &result, loader, d)
	}

	return result
}

// validateDataset loads the dataset and reports adaptation or load failures
func validateDataset(ctx context.Context, result *ValidationResult, loader *region.Loader, d region.Descriptor) {
	collection, err := loader.Load(ctx, d)
	if err != nil {
		var aerr *region.AdaptationError
		switch {
		case errors.As(err, &aerr):
			result.fail("Feature %d has no usable %q: %s", aerr.Index, aerr.Field, aerr.Reason)
		case errors.Is(err, region.ErrDuplicateName):
			result.fail("Duplicate region names: %v", err)
		default:
			result.fail("Failed to load dataset: %v", err)
		}
		return
	}
	if len(collection.Features) == 0 {
		result.fail("Dataset has no features")
		return
	}
	result.info("Regions: %d", len(collection.Features))
}

// validateDir validates every descriptor in configDir
func validateDir(ctx context.Context, configDir string, loader *region.Loader) ([]ValidationResult, error) {
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		return nil, err
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateDescriptor(ctx, file, loader))
	}
	return results, nil
}

// main validates the descriptor files, printing a concise report and exiting
// with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	var loader *region.Loader
	if len(os.Args) > 2 {
		loader = region.NewLoader(os.Args[2])
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	results, err := validateDir(ctx, configDir, loader)
	if err != nil {
		fmt.Printf("Error finding descriptor files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, result := range results {
		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Messages {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, msg := range result.Messages {
				if !strings.HasPrefix(msg, "✓") {
					fmt.Println("  ❌ " + msg)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Printf("✅ All %d descriptors are valid!\n", len(results))
	} else {
		fmt.Println("❌ Some descriptors have errors")
		os.Exit(1)
	}
}
