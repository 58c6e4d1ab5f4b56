package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilter_Mask(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"badger", "snake", "mushroom"}, '*')
	req.NoError(err)
	req.NotNil(filter)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{"single word keeps spacing", "The badger is here", "The ****** is here", []string{"badger"}},
		{"every occurrence", "badger badger", "****** ******", []string{"badger", "badger"}},
		{"leet and inner punctuation", "Look at B.4.d.g.€r !", "Look at ********** !", []string{"badger"}},
		{"uppercase and noise", "S-N-A-K-E is a B.A.D.G.E.R", "********* is a ***********", []string{"snake", "badger"}},
		{"accents untouched", "Un été avec un badger", "Un été avec un ******", []string{"badger"}},
		{"trailing punctuation kept", "I love badger!", "I love ******!", []string{"badger"}},
		{"nothing to mask", "pairchat is fine", "pairchat is fine", nil},
		{"empty", "", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := filter.Mask(tt.input)
			require.Equal(t, tt.expected, content)
			require.Equal(t, tt.words, words)
		})
	}
}

func TestFilter_Mask_Respects_Word_Boundaries(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"badger", "ass"}, '*')
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{"match running into the next word", "a bad germ", "a bad germ", nil},
		{"match inside a word", "the class starts", "the class starts", nil},
		{"match at the end of a word", "pass some", "pass some", nil},
		{"split word keeps its space", "bad ger", "*** ***", []string{"badger"}},
		{"punctuation after the word", "you ass!", "you ***!", []string{"ass"}},
		{"one good one bad", "class ass", "class ***", []string{"ass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content, words := filter.Mask(tt.input)
			require.Equal(t, tt.expected, content)
			require.Equal(t, tt.words, words)
		})
	}
}

func TestFilter_Ignores_Words_Made_Of_Noise(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter([]string{"...", ",,,", "", "badger"}, '#')
	req.NoError(err)

	content, words := filter.Mask("The badger is safe")
	req.Equal("The ###### is safe", content)
	req.Equal([]string{"badger"}, words)

	content, words = filter.Mask("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestFilter_Nil_When_Nothing_To_Block(t *testing.T) {
	req := require.New(t)
	filter, err := NewFilter(nil, '*')
	req.NoError(err)
	req.Nil(filter)

	content, words := filter.Mask("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)
}

func TestFilter_Rejects_Blank_Mask(t *testing.T) {
	_, err := NewFilter([]string{"badger"}, ' ')
	require.Error(t, err)
}

func TestLanguage(t *testing.T) {
	req := require.New(t)
	req.Equal("en", Language("The quick brown fox jumps over the lazy dog and keeps running through the forest"))
	req.Equal("fr", Language("Bonjour à tous, je voulais vous dire que la réunion de demain est annulée"))
}
