package process

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyStem indicates a process name that sanitizes to nothing.
var ErrEmptyStem = errors.New("process name yields an empty file stem")

// FileStem maps a process name to the file stem shared by both outputs.
// Spaces, path separators and characters rejected by common filesystems become
// underscores. Case is preserved.
func FileStem(name string) (string, error) {
	normalized := norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		switch {
		case r == ' ', unicode.IsControl(r), strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	stem := strings.Trim(b.String(), "._")
	if stem == "" {
		return "", ErrEmptyStem
	}
	return stem, nil
}
