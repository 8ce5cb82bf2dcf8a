// Package censor defines the provider-adapter contract consumed by the
// orchestration flow, and a closed registry resolving configured provider
// names into concrete adapters at construction time.
package censor
