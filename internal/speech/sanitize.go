// Package speech delivers assistant replies as audio through a hosted
// synthesis tier with an on-device fallback, at most one playback at a time.
package speech

import (
	"regexp"
	"strings"
)

var (
	mdLink   = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdMarkup = regexp.MustCompile("[*_#`~>|]+")
)

// Sanitize strips emoji and markdown punctuation and collapses whitespace so
// the text reads naturally when spoken.
func Sanitize(text string) string {
	text = mdLink.ReplaceAllString(text, "$1")
	text = strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, text)
	text = mdMarkup.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, flags, symbols
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // stars, arrows
		return true
	case r == 0xFE0F || r == 0x200D: // variation selector, zero-width joiner
		return true
	}
	return false
}
