// Package region loads GeoJSON datasets and gives every feature a canonical name.
//
// Each dataset is described by a Descriptor naming the property that holds the
// region name and the location of the file. A Registry maps modality
// identifiers to descriptors and falls back to the default dataset for
// identifiers it does not know. The Loader fetches a dataset from disk or over
// HTTP and applies the descriptor to every feature.
package region
