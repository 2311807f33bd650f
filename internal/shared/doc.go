// Package shared provides common utilities and test helpers used across the
// covidcli codebase. It is a home for functionality that does not belong to
// any specific domain or architectural layer.
//
// # Structure
//
//   - testutil: testing utilities, currently the buffered slog handler used
//     to assert on structured log output.
//
// # Usage Guidelines
//
// This package should only contain:
//
//  1. Test utilities used by multiple packages
//  2. Generic helper functions with no domain-specific logic
//
// It should NOT contain business logic, external dependencies beyond the
// standard library, or circular dependencies with other internal packages.
package shared
