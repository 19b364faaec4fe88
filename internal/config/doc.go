// Package config loads, parses and validates application settings from
// environment variables (GAMEGEN_ prefix) and an optional config.yaml.
// It provides typed access to the settings each component needs while
// keeping configuration details out of business logic.
package config
