// Package config loads and validates the censorgate configuration.
//
// Precedence: built-in defaults, then the YAML file, then environment
// variables with the CENSORGATE_ prefix. Secrets are expected to arrive via
// environment in production deployments; the YAML file carries topology
// (chains, cache, audit) and tuning knobs.
package config
