// Command analyze prints quick, human-readable statistics about datasets: how
// many features they hold, how many can be named through their descriptor,
// duplicate names, geometry types and the property keys available as
// alternative name fields.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mapquiz/game/config"
	"github.com/wricardo/mapquiz/game/region"
)

// maxListed bounds the examples printed per problem
const maxListed = 5

// Report summarizes one dataset
type Report struct {
	Dataset        string         `json:"dataset"`
	NameField      string         `json:"name_field"`
	Source         string         `json:"source"`
	Features       int            `json:"features"`
	Named          int            `json:"named"`
	Unnamed        []int          `json:"unnamed,omitempty"`
	Duplicates     []string       `json:"duplicates,omitempty"`
	GeometryTypes  map[string]int `json:"geometry_types"`
	PropertyKeys   map[string]int `json:"property_keys"`
	ShortestName   string         `json:"shortest_name,omitempty"`
	LongestName    string         `json:"longest_name,omitempty"`
	Error          string         `json:"error,omitempty"`
	unnamedReasons []string
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Print statistics about quiz datasets",
		ArgsUsage: "[dataset-id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing dataset descriptors",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "data",
				Usage:   "directory dataset file locators are resolved against",
				Sources: cli.EnvVars("DATA_DIR"),
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print reports as JSON",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			descriptors, err := resolveDescriptors(cmd.String("config-dir"), cmd.Args().Slice())
			if err != nil {
				return err
			}

			loader := region.NewLoader(cmd.String("data-dir"))
			reports := make([]*Report, 0, len(descriptors))
			for _, d := range descriptors {
				reports = append(reports, analyzeDataset(ctx, loader, d))
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(cmd.Root().Writer)
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, r := range reports {
				printReport(cmd.Root().Writer, r)
			}
			return nil
		},
	}
}

// resolveDescriptors returns the descriptors to analyze: the named ids, or all
// known datasets. Descriptor files are read when the config directory exists.
func resolveDescriptors(configDir string, ids []string) ([]region.Descriptor, error) {
	var all []region.Descriptor
	lookup := func(id string) (region.Descriptor, bool) {
		for _, d := range all {
			if d.ID == id {
				return d, true
			}
		}
		return region.Descriptor{}, false
	}

	if _, err := os.Stat(configDir); err == nil {
		manager, err := config.NewManager(configDir, nil)
		if err != nil {
			return nil, err
		}
		infos, err := manager.ListDatasets()
		if err != nil {
			return nil, err
		}
		for _, info := range infos {
			if d, ok := manager.Descriptor(info.DatasetID); ok {
				all = append(all, d)
			}
		}
	} else {
		all = region.Builtins()
	}

	if len(ids) == 0 {
		return all, nil
	}

	selected := make([]region.Descriptor, 0, len(ids))
	for _, id := range ids {
		d, ok := lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q", id)
		}
		selected = append(selected, d)
	}
	return selected, nil
}

// analyzeDataset fetches a dataset and gathers its statistics. Retrieval
// failures are recorded in the report rather than returned.
func analyzeDataset(ctx context.Context, loader *region.Loader, d region.Descriptor) *Report {
	report := &Report{
		Dataset:       d.ID,
		NameField:     d.NameField,
		Source:        d.Source,
		GeometryTypes: make(map[string]int),
		PropertyKeys:  make(map[string]int),
	}

	payload, err := loader.Fetch(ctx, d.SourceLocator())
	if err != nil {
		report.Error = err.Error()
		return report
	}
	features, err := region.SplitFeatures(payload)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Features = len(features)

	seen := make(map[string]bool, len(features))
	for i, raw := range features {
		geometry := gjson.GetBytes(raw, "geometry.type")
		if geometry.Exists() {
			report.GeometryTypes[geometry.String()]++
		} else {
			report.GeometryTypes["none"]++
		}

		gjson.GetBytes(raw, "properties").ForEach(func(key, _ gjson.Result) bool {
			report.PropertyKeys[key.String()]++
			return true
		})

		name, err := d.CanonicalName(raw)
		if err != nil {
			report.Unnamed = append(report.Unnamed, i)
			var aerr *region.AdaptationError
			if errors.As(err, &aerr) {
				report.unnamedReasons = append(report.unnamedReasons, aerr.Reason)
			}
			continue
		}
		report.Named++

		if seen[name] {
			report.Duplicates = append(report.Duplicates, name)
		}
		seen[name] = true

		if report.ShortestName == "" || utf8.RuneCountInString(name) < utf8.RuneCountInString(report.ShortestName) {
			report.ShortestName = name
		}
		if utf8.RuneCountInString(name) > utf8.RuneCountInString(report.LongestName) {
			report.LongestName = name
		}
	}

	return report
}

func printReport(w io.Writer, r *Report) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", r.Dataset)
	fmt.Fprintf(w, "Source: %s\n", r.Source)
	fmt.Fprintf(w, "Name field: %s\n", r.NameField)

	if r.Error != "" {
		fmt.Fprintf(w, "❌ %s\n", r.Error)
		return
	}

	fmt.Fprintf(w, "Features: %d\n", r.Features)
	fmt.Fprintf(w, "Geometry: %s\n", formatCounts(r.GeometryTypes))
	fmt.Fprintf(w, "Property keys: %s\n", formatCounts(r.PropertyKeys))
	if r.Named > 0 {
		fmt.Fprintf(w, "Names: %q (shortest) .. %q (longest)\n", r.ShortestName, r.LongestName)
	}

	if len(r.Unnamed) > 0 {
		fmt.Fprintf(w, "⚠️  WARNING: %d features have no usable %q\n", len(r.Unnamed), r.NameField)
		for i, idx := range r.Unnamed {
			if i == maxListed {
				fmt.Fprintf(w, "   ... and %d more\n", len(r.Unnamed)-maxListed)
				break
			}
			reason := ""
			if i < len(r.unnamedReasons) {
				reason = r.unnamedReasons[i]
			}
			fmt.Fprintf(w, "   Feature %d: %s\n", idx, reason)
		}
	}

	if len(r.Duplicates) > 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: duplicate names %s\n", strings.Join(r.Duplicates, ", "))
	}

	if len(r.Unnamed) == 0 && len(r.Duplicates) == 0 {
		fmt.Fprintf(w, "✅ All %d features have unique names\n", r.Named)
	}
}

// formatCounts renders a count map as "key (n), ..." sorted by descending count
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s (%d)", k, counts[k])
	}
	return strings.Join(parts, ", ")
}
