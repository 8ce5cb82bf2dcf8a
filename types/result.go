package types

import (
	"sort"
	"strings"
)

// emptyPlaceholders are serialized empty-collection markers that must never
// leak into user-visible evidence. They showed up repeatedly in earlier
// incarnations of this system when empty sets were stringified upstream.
var emptyPlaceholders = map[string]struct{}{
	"set()": {},
	"[]":    {},
	"{}":    {},
	"map[]": {},
	"null":  {},
	"none":  {},
	"nil":   {},
}

// CensorResult is the unified verdict for one submission. Once constructed
// it is an immutable value; no component mutates it afterwards.
type CensorResult struct {
	Message Message           `json:"message"`
	Risk    RiskLevel         `json:"risk"`
	Reasons []string          `json:"reasons"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// NewCensorResult builds a result with sanitized reasons.
func NewCensorResult(msg Message, risk RiskLevel, reasons []string, extra map[string]string) *CensorResult {
	return &CensorResult{
		Message: msg,
		Risk:    risk,
		Reasons: NewReasons(reasons...),
		Extra:   extra,
	}
}

// NewReasons canonicalizes evidence strings: trims whitespace, drops empty
// strings and serialized empty-collection placeholders, deduplicates, and
// sorts for stable output. "No reasons" is always represented by an empty
// slice, never by a placeholder string.
func NewReasons(reasons ...string) []string {
	out := make([]string, 0, len(reasons))
	seen := make(map[string]struct{}, len(reasons))
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, bad := emptyPlaceholders[strings.ToLower(r)]; bad {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// IsPlaceholderReason reports whether s is one of the forbidden serialized
// empty-collection markers. Exposed for validation in tests.
func IsPlaceholderReason(s string) bool {
	_, ok := emptyPlaceholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// JoinReasons renders reasons for audit storage.
func JoinReasons(reasons []string) string {
	return strings.Join(reasons, ",")
}
