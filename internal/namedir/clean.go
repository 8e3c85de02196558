package namedir

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented letters (NFD) and then drops the combining
// marks left behind, e.g. "é" -> "e", "ü" -> "u", a best-effort
// transliteration to ASCII rather than an outright rejection of
// non-ASCII display names.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func toASCIIBestEffort(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		return s
	}
	return out
}

// CleanName normalizes a requested display name: transliterate to ASCII,
// keep only alphanumerics and spaces, collapse whitespace runs, trim
// leading whitespace, cap at 16 scalar values, trim trailing whitespace.
// It is idempotent, so re-cleaning an already-clean name is a no-op.
func CleanName(requested string) string {
	ascii := toASCIIBestEffort(requested)

	var kept strings.Builder
	for _, r := range ascii {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			kept.WriteRune(r)
		}
	}

	collapsed := collapseSpaces(kept.String())
	collapsed = strings.TrimLeft(collapsed, " ")

	capped := []rune(collapsed)
	if len(capped) > 16 {
		capped = capped[:16]
	}

	return strings.TrimRight(string(capped), " ")
}

func collapseSpaces(s string) string {
	var out strings.Builder
	prevSpace := false
	for _, r := range s {
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		out.WriteRune(r)
	}
	return out.String()
}
