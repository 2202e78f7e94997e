package persistence

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestBuildSearchDocument(t *testing.T) {
	cases := []struct {
		name        string
		title       string
		description string
		want        string
	}{
		{"plain", "Fund bridge", "with 5m", "Fund bridge with 5m"},
		{"punctuation stripped", "Hello, world!", "really?", "Hello world really"},
		{"control chars", "a\x00b", "c\x1fd", "a b c d"},
		{"whitespace collapsed", "a   b", "c\t\nd", "a b c d"},
		{"unicode letters kept", "Göterdämmerung", "預算案 123", "Göterdämmerung 預算案 123"},
		{"underscore kept", "snake_case", "", "snake_case"},
		{"empty", "", "", ""},
		{"only punctuation", "!!!", "???", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, BuildSearchDocument(tc.title, tc.description))
		})
	}
}

func TestBuildSearchDocument_Capped(t *testing.T) {
	long := strings.Repeat("word ", 500)
	doc := BuildSearchDocument("title", long)
	require.LessOrEqual(t, utf8.RuneCountInString(doc), searchDocumentMaxRunes)
	require.True(t, strings.HasPrefix(doc, "title word"))
}

func TestBuildSearchDocument_CapPreservesUTF8(t *testing.T) {
	doc := BuildSearchDocument(strings.Repeat("世", 400), strings.Repeat("界", 800))
	require.True(t, utf8.ValidString(doc))
	require.Equal(t, searchDocumentMaxRunes, utf8.RuneCountInString(doc))
	require.True(t, strings.HasSuffix(doc, "界"), "cap must land on a rune boundary")
}

func TestBuildSearchDocument_Deterministic(t *testing.T) {
	a := BuildSearchDocument("Same, input!", "every\ttime")
	b := BuildSearchDocument("Same, input!", "every\ttime")
	require.Equal(t, a, b)
}
