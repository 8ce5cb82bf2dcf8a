package censor

import (
	"context"

	"github.com/BaSui01/censorgate/types"
)

// Detector is the capability contract implemented by every moderation
// provider adapter.
//
// Contract: a Detector never reports "safe" to paper over a failure. On any
// unrecoverable error it returns a typed *types.Error and a zero verdict;
// the caller decides the fail-open/fail-closed policy. Returned reasons are
// either genuinely empty or genuinely descriptive — adapters build them via
// types.NewReasons, which strips serialized empty-collection placeholders
// by construction.
type Detector interface {
	// Name identifies the provider for logs, metrics, and audit records.
	Name() string

	// DetectText moderates raw text.
	DetectText(ctx context.Context, text string) (types.RiskLevel, []string, error)

	// DetectImage moderates an image reference: an HTTP(S) URL or an inline
	// payload prefixed with types.Base64Prefix. Vendor-specific payload
	// shaping is the adapter's responsibility.
	DetectImage(ctx context.Context, image string) (types.RiskLevel, []string, error)

	// Close releases adapter resources.
	Close() error
}
