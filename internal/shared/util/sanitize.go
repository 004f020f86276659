package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxFileNameLen bounds stored file names; the extension is kept when trimming.
const MaxFileNameLen = 200

// SanitizeFileName removes path separators and control characters, collapses
// whitespace and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	if utf8.RuneCountInString(s) > MaxFileNameLen {
		ext := filepath.Ext(s)
		if utf8.RuneCountInString(ext) >= MaxFileNameLen {
			ext = ""
		}
		base := []rune(strings.TrimSuffix(s, ext))
		s = string(base[:MaxFileNameLen-utf8.RuneCountInString(ext)]) + ext
	}
	return s, nil
}
