// Package config defines configuration for the pokefetch CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (POKEFETCH_ prefix, .env supported)
//   - YAML configuration file
//
// Flags win over environment variables, which win over the file, which
// wins over built-in defaults.
package config
