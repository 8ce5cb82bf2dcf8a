package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevel_Ordering(t *testing.T) {
	assert.True(t, RiskPass < RiskReview)
	assert.True(t, RiskReview < RiskBlock)
}

func TestRiskLevel_String(t *testing.T) {
	assert.Equal(t, "pass", RiskPass.String())
	assert.Equal(t, "review", RiskReview.String())
	assert.Equal(t, "block", RiskBlock.String())
}

func TestParseRiskLevel(t *testing.T) {
	for _, lvl := range []RiskLevel{RiskPass, RiskReview, RiskBlock} {
		got, err := ParseRiskLevel(lvl.String())
		assert.NoError(t, err)
		assert.Equal(t, lvl, got)
	}

	got, err := ParseRiskLevel("bogus")
	assert.Error(t, err)
	assert.Equal(t, RiskReview, got, "unknown levels default to review, not pass")
}

func TestMaxRisk(t *testing.T) {
	assert.Equal(t, RiskBlock, MaxRisk(RiskPass, RiskBlock))
	assert.Equal(t, RiskBlock, MaxRisk(RiskBlock, RiskPass))
	assert.Equal(t, RiskReview, MaxRisk(RiskReview, RiskPass))
	assert.Equal(t, RiskPass, MaxRisk(RiskPass, RiskPass))
}
