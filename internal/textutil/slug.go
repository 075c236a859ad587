package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultSlugLength bounds Slug output in runes.
const DefaultSlugLength = 48

// Slug converts a title into a directory name. Letters and digits of every
// script survive, lowercased; runs of anything else collapse into one dash.
// The result never exceeds maxRunes and is empty when nothing survives.
func Slug(title string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultSlugLength
	}
	title = norm.NFC.String(strings.TrimSpace(title))

	var b strings.Builder
	count := 0
	pendingDash := false
	for _, r := range title {
		if count >= maxRunes {
			break
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && count > 0 {
				if count+2 > maxRunes {
					break
				}
				b.WriteByte('-')
				count++
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
			count++
			continue
		}
		pendingDash = true
	}
	return b.String()
}
