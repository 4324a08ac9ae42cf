package textutil

import (
	"strings"
	"unicode"
)

// unsafeName reports runes that cannot appear in a file name on common
// filesystems.
func unsafeName(r rune) bool {
	switch r {
	case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
		return true
	}
	return unicode.IsControl(r)
}

// ArchiveName is the file name of an order's print package. Unsafe characters
// collapse to single dashes; an identifier with nothing usable left becomes
// "order".
func ArchiveName(orderID string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(orderID) {
		if unsafeName(r) || unicode.IsSpace(r) {
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = true
			continue
		}
		b.WriteRune(r)
		dash = false
	}
	name := strings.Trim(b.String(), "-.")
	if name == "" {
		name = "order"
	}
	return name + ".zip"
}

// Token converts value to a lowercase token for archive entry names. Letters
// and digits are kept, any other run of runes becomes one underscore. Returns
// "unknown" when nothing usable remains.
func Token(value string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(unicode.ToLower(r))
			sep = false
		case r == '-':
			b.WriteRune(r)
			sep = false
		default:
			if !sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			sep = true
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
