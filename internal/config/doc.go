// Package config provides centralized configuration management for the COVID
// data pipeline. It handles loading configuration from multiple sources,
// validation, and provides a type-safe API for accessing configuration values
// throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. Configuration file (YAML)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COVID_* for namespacing:
//
//	COVID_DATA_INPUT_FILE=data/raw/owid-covid-data.csv
//	COVID_PIPELINE_MODE=global
//	COVID_PIPELINE_LOCATIONS=Kenya,Brazil,Germany
//	COVID_ANALYTICS_ROLLING_WINDOW=7
//	COVID_LOGGING_LEVEL=info
//
// # Path Management
//
// The package provides centralized path management through the Paths type,
// which handles all file system paths relative to the executable location:
//
//	paths, err := config.GetPaths()
//	rawPath := paths.GetRawPath("owid-covid-data.csv")
//	reportPath := paths.GetReportPath("location_summary.csv")
//
// # Validation
//
// All configuration is validated at load time to ensure:
//
//	- Enumerated fields hold one of their accepted values
//	- Numeric knobs are within acceptable ranges
//	- Required directories exist or can be created
//
// # Usage
//
// Load configuration at application startup:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
