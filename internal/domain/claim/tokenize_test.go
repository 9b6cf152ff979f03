package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize(t *testing.T) {
	tokens := Tokenize("The sensor, mounted ON the housing, measures flow.")

	assert.Equal(t, []string{"sensor", "mounted", "housing", "measures", "flow"}, tokens)
}

func TestTokenize_DropsShortAndStopWords(t *testing.T) {
	tokens := Tokenize("it is an AI on a chip")

	// "it", "is", "an", "on", "a" are short or stop words; "ai" is too short.
	assert.Equal(t, []string{"chip"}, tokens)
}

func TestTokenize_Empty(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("a an the"))
}

func TestIsStopWord(t *testing.T) {
	assert.False(t, IsStopWord("wherein"))
	assert.True(t, IsStopWord("the"))
	assert.False(t, IsStopWord("sensor"))
}

func TestTokenSet(t *testing.T) {
	set := TokenSet("sensor sensor housing")

	assert.Len(t, set, 2)
	assert.Contains(t, set, "sensor")
	assert.Contains(t, set, "housing")
}
