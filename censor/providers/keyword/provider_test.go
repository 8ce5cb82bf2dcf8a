package keyword

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/censorgate/types"
)

func TestNew_EmptyWordListIsConfigError(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestDetectText_HitAndMiss(t *testing.T) {
	p, err := New(Config{Words: []string{"spam", "SCAM"}}, zap.NewNop())
	require.NoError(t, err)

	risk, reasons, err := p.DetectText(context.Background(), "this is Spam and a scam")
	require.NoError(t, err)
	assert.Equal(t, types.RiskBlock, risk)
	assert.Equal(t, []string{"scam", "spam"}, reasons)

	risk, reasons, err = p.DetectText(context.Background(), "perfectly fine")
	require.NoError(t, err)
	assert.Equal(t, types.RiskPass, risk)
	assert.Empty(t, reasons)
}

func TestNew_ConfigurableRisk(t *testing.T) {
	p, err := New(Config{Words: []string{"maybe"}, Risk: "review"}, zap.NewNop())
	require.NoError(t, err)

	risk, _, err := p.DetectText(context.Background(), "maybe bad")
	require.NoError(t, err)
	assert.Equal(t, types.RiskReview, risk)

	_, err = New(Config{Words: []string{"x"}, Risk: "bogus"}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, types.IsConfiguration(err))
}

func TestDetectImage_AlwaysPasses(t *testing.T) {
	p, err := New(Config{Words: []string{"spam"}}, zap.NewNop())
	require.NoError(t, err)

	risk, reasons, err := p.DetectImage(context.Background(), "https://example.com/spam.jpg")
	require.NoError(t, err)
	assert.Equal(t, types.RiskPass, risk)
	assert.Empty(t, reasons)
}
