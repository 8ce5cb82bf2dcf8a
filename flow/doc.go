// Package flow is the orchestration core of censorgate. It composes
// provider adapters into fallback chains, applies result caching and
// in-flight request coalescing keyed by content fingerprint, converts
// adapter failures into fail-closed review verdicts, and triggers audit
// logging for non-clean verdicts.
//
// Chain precedence is short-circuit on first non-pass: a flagged result
// from a trusted early provider is authoritative and cheaper than
// consulting every vendor, so the final verdict is the last evaluated
// result, not the maximum across all providers.
package flow
