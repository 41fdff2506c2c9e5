package transcriber

import "strings"

// invisibleRunes are Unicode control and formatting characters the remote
// service occasionally emits around right-to-left text: directional marks,
// zero-width joiners and spaces, embedding/override/isolate controls, BOM.
var invisibleRunes = map[rune]struct{}{
	'؜': {}, // arabic letter mark
	'​': {}, // zero-width space
	'‌': {}, // zero-width non-joiner
	'‍': {}, // zero-width joiner
	'‎': {}, // left-to-right mark
	'‏': {}, // right-to-left mark
	'‪': {}, // left-to-right embedding
	'‫': {}, // right-to-left embedding
	'‬': {}, // pop directional formatting
	'‭': {}, // left-to-right override
	'‮': {}, // right-to-left override
	'⁦': {}, // left-to-right isolate
	'⁧': {}, // right-to-left isolate
	'⁨': {}, // first strong isolate
	'⁩': {}, // pop directional isolate
	'\uFEFF': {}, // zero-width no-break space / BOM
}

// cleanInvisible strips invisible Unicode control characters from text
func cleanInvisible(text string) string {
	return strings.Map(func(r rune) rune {
		if _, drop := invisibleRunes[r]; drop {
			return -1
		}
		return r
	}, text)
}
