package content

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Title derives a page title from a file or directory name: the extension is
// stripped and the result NFC-normalized, so decomposed names from some
// filesystems read the same as composed ones.
func Title(name string) string {
	return norm.NFC.String(Stem(name))
}

// Stem strips the final extension from name. Names whose only dot is the
// leading one (".profile") are returned unchanged.
func Stem(name string) string {
	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}
