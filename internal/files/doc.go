// Package files provides file system operations and dataset discovery
// utilities for the COVID data pipeline.
//
// This package contains two main components:
//
// Discovery: Provides dataset discovery operations such as finding CSV and
// Excel snapshots, files matching specific patterns, and dated dataset
// snapshots. It also includes a utility for finding the latest file.
//
// Manager: Provides basic file management operations such as copying, moving,
// deleting files, fingerprinting dataset sources, and ensuring directories
// exist. Relative paths resolve against the data layout (raw/, clean/,
// reports/, logs/) to maintain portability.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery("/path/to/base")
//
//	// Find the newest dataset snapshot in the raw directory
//	datasets, err := discovery.FindDatasetFiles("raw")
//
//	// Create a manager instance
//	manager := files.NewManager(paths)
//
//	// Check if file exists
//	if manager.FileExists("clean/covid_clean.csv") {
//	    // Process file
//	}
package files
