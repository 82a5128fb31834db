// Package nlp holds the text normalization shared by the complaint scorers:
// tokenization, stop-word filtering and term-frequency vectors.
package nlp

import (
	"iter"
	"strings"
)

// MinTokenLength is the shortest token kept by Preprocess.
const MinTokenLength = 3

// Tokens returns a lazy, restartable sequence of lowercase word tokens.
// Every character outside [a-z] and whitespace acts as a separator, so
// "Gas-leak!!" yields "gas", "leak". Folding is ASCII only.
func Tokens(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		var word strings.Builder
		for _, r := range text {
			if r >= 'A' && r <= 'Z' {
				r += 'a' - 'A'
			}
			if r >= 'a' && r <= 'z' {
				word.WriteRune(r)
				continue
			}
			if word.Len() > 0 {
				if !yield(word.String()) {
					return
				}
				word.Reset()
			}
		}
		if word.Len() > 0 {
			yield(word.String())
		}
	}
}

// Tokenize collects Tokens into a slice.
func Tokenize(text string) []string {
	tokens := make([]string, 0, strings.Count(text, " ")+1)
	for token := range Tokens(text) {
		tokens = append(tokens, token)
	}
	return tokens
}

// TokenizeAny accepts loosely typed input. Anything that is not a string
// (nil included) yields no tokens.
func TokenizeAny(v any) []string {
	text, ok := v.(string)
	if !ok {
		return []string{}
	}
	return Tokenize(text)
}

// Meaningful returns the tokens of text that are at least MinTokenLength
// long and not stop words, lazily.
func Meaningful(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for token := range Tokens(text) {
			if len(token) < MinTokenLength || IsStopWord(token) {
				continue
			}
			if !yield(token) {
				return
			}
		}
	}
}

// Preprocess collects Meaningful into a slice.
func Preprocess(text string) []string {
	tokens := make([]string, 0)
	for token := range Meaningful(text) {
		tokens = append(tokens, token)
	}
	return tokens
}
