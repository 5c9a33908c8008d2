// Package textnorm prepares social-media text for lexicon scoring. It strips
// links, Reddit user and subreddit references and markdown emphasis, collapses
// whitespace, and splits text into lower-case word tokens.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"mvdan.cc/xurls/v2"
)

var (
	urlPattern       = xurls.Strict()
	userRefPattern   = regexp.MustCompile(`/u/\w+`)
	subRefPattern    = regexp.MustCompile(`/r/\w+`)
	boldPattern      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	italicPattern    = regexp.MustCompile(`\*([^*]+)\*`)
	emailPattern     = regexp.MustCompile(`\S+@\S+`)
	whitespaceRegexp = regexp.MustCompile(`\s+`)
)

// Clean removes URLs, /u/ and /r/ references and markdown bold/italic
// markers, then collapses runs of whitespace. Case is preserved. Clean is
// idempotent.
func Clean(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = userRefPattern.ReplaceAllString(text, "")
	text = subRefPattern.ReplaceAllString(text, "")
	text = boldPattern.ReplaceAllString(text, "$1")
	text = italicPattern.ReplaceAllString(text, "$1")
	text = whitespaceRegexp.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// LettersOnly lower-cases text, drops URLs and e-mail addresses and replaces
// every non-letter with a space. Theme scoring runs on this form.
func LettersOnly(text string) string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(text), " ")
}

// Words lower-cases text and splits it on anything that is not a letter,
// digit or apostrophe. Apostrophes are kept so contractions such as
// "don't" survive as one token.
func Words(text string) []string {
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '’'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'’")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// ContainsAtWordStart reports whether phrase occurs in text beginning at a
// word boundary. The phrase may continue into a longer word ("fee" matches
// "fees") but may not start mid-word ("ui" does not match "quickbooks").
// Both arguments are expected lower-case.
func ContainsAtWordStart(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		pos := offset + i
		if pos == 0 || !isWordByte(text[pos-1]) {
			return true
		}
		offset = pos + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b >= 0x80
}
