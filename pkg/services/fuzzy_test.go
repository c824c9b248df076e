package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseMatches(t *testing.T) {
	matches := CloseMatches("appel", []string{"ape", "apple", "peach", "puppy"}, 3, 0.6)

	values := make([]string, len(matches))
	for i, m := range matches {
		values[i] = m.Value
	}
	assert.Equal(t, []string{"apple", "ape"}, values)
	assert.InDelta(t, 0.8, matches[0].Score, 1e-9)
	assert.InDelta(t, 0.75, matches[1].Score, 1e-9)
}

func TestCloseMatchesLimitsAndCutoff(t *testing.T) {
	candidates := []string{"silver ring", "silver rings", "gold ring"}

	assert.Len(t, CloseMatches("silver ring", candidates, 1, 0.6), 1)
	assert.Empty(t, CloseMatches("anklet", candidates, 3, 0.6))
	assert.Nil(t, CloseMatches("silver ring", candidates, 0, 0.6))
	assert.Nil(t, CloseMatches("silver ring", candidates, 3, 1.5))
}

func TestBestMatch(t *testing.T) {
	names := []string{"jhumka earrings", "classic kada", "rope chain"}

	match, ok := BestMatch("jhumka earring", names, 0.6)
	assert.True(t, ok)
	assert.Equal(t, "jhumka earrings", match)

	_, ok = BestMatch("silver ring", names, 0.6)
	assert.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 0.75, Similarity("abcd", "bcde"), 1e-9)
	assert.InDelta(t, 1.0, Similarity("₹ring", "₹ring"), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
}
