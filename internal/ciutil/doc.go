// Package ciutil provides utilities for CI and environment-specific functionality.
//
// This package centralizes the names of the environment variables the test
// database tooling reads, detection of the execution environment (CI, local dev),
// masking of sensitive values before they reach logs, and project root detection
// used to locate migration directories.
package ciutil
