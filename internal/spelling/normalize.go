// Package spelling post-processes recognized handwriting text. The
// transform is purely local and never fails; at worst it returns its
// input unchanged.
package spelling

import "strings"

// Word-level fixes for confusions handwriting recognizers commonly
// produce. Matches are case-sensitive and whole-word only.
var corrections = map[string]string{
	"Ihe":   "The",
	"lhe":   "the",
	"0f":    "of",
	"0n":    "on",
	"t0":    "to",
	"vvith": "with",
	"vvhen": "when",
	"1n":    "in",
	"anol":  "and",
}

// Normalize joins words hyphen-split across line breaks, collapses runs
// of spaces and tabs, and applies the correction table.
func Normalize(text string) string {
	if text == "" {
		return text
	}

	text = joinHyphenBreaks(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		words := strings.Fields(line)
		for j, word := range words {
			if fixed, ok := corrections[word]; ok {
				words[j] = fixed
				continue
			}
			// Trailing punctuation must not defeat a whole-word match.
			trimmed := strings.TrimRight(word, ".,;:!?")
			if fixed, ok := corrections[trimmed]; ok {
				words[j] = fixed + word[len(trimmed):]
			}
		}
		lines[i] = strings.Join(words, " ")
	}
	return strings.Join(lines, "\n")
}

func joinHyphenBreaks(text string) string {
	return strings.ReplaceAll(text, "-\n", "")
}
