// Package config provides the dataset catalog of the map quiz server.
//
// The config package handles:
//   - Loading dataset descriptors from JSON files
//   - Merging them with the built-in datasets
//   - Default dataset selection with silent fallback
//   - Caching loaded feature collections
//
// Descriptor Format:
//
// Each file in the configs directory describes one dataset. The file name
// is the dataset identifier unless the file sets "id".
//
//	{
//	  "id": "italian-regions",
//	  "name": "Italian Regions",
//	  "description": "The 20 regions of Italy",
//	  "name_field": "reg_name",
//	  "source": "/assets/private/italy_regions.geojson"
//	}
//
// Sources starting with http:// or https:// are downloaded. Any other
// source is a path under the data directory of the region.Loader.
//
// Usage:
//
//	manager, err := config.NewManager("configs", region.NewLoader("data"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	dataset, err := manager.LoadDataset(ctx, "europe-states")
//	datasets, err := manager.ListDatasets()
package config
