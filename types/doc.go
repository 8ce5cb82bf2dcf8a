// Package types defines the core data model shared across censorgate:
// risk levels, messages, censor results, content fingerprints, and the
// structured error taxonomy used by provider adapters and the flow layer.
package types
