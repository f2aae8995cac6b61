package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{10.0, SeverityCritical},
		{9.0, SeverityCritical},
		{8.9, SeverityHigh},
		{7.0, SeverityHigh},
		{6.9, SeverityMedium},
		{4.0, SeverityMedium},
		{3.9, SeverityLow},
		{0, SeverityLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForScore(tt.score), "score %.1f", tt.score)
	}
}

func TestParseSeverity(t *testing.T) {
	s, err := ParseSeverity("HIGH")
	require.NoError(t, err)
	assert.Equal(t, SeverityHigh, s)

	s, err = ParseSeverity("moderate")
	require.NoError(t, err)
	assert.Equal(t, SeverityMedium, s)

	_, err = ParseSeverity("urgent")
	assert.Error(t, err)
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, SeverityNone.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}
