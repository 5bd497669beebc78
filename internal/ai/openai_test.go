package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScore(t *testing.T) {
	res, err := parseScore(`{"score": 7.5, "intent": "research", "reasoning": "active buying discussion"}`)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, res.Score, 1e-9)
	assert.Equal(t, "research", res.Intent)
}

func TestParseScoreWrappedInProse(t *testing.T) {
	raw := "Sure, here is the rating:\n```json\n{\"score\": 9, \"intent\": \"question\", \"reasoning\": \"direct ask\"}\n```\nHope that helps."
	res, err := parseScore(raw)
	require.NoError(t, err)
	assert.InDelta(t, 9, res.Score, 1e-9)
	assert.Equal(t, "question", res.Intent)
}

func TestParseScoreClamps(t *testing.T) {
	res, err := parseScore(`{"score": 14, "intent": "general"}`)
	require.NoError(t, err)
	assert.InDelta(t, 10, res.Score, 1e-9)

	res, err = parseScore(`{"score": -2, "intent": "general"}`)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.Score, 1e-9)
}

func TestParseScoreNoJSON(t *testing.T) {
	_, err := parseScore("I cannot rate this.")
	assert.Error(t, err)
}
