package handlers

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// SanitizePath joins the untrusted relative path requested onto root and
// reports whether the result is guaranteed to be root or a descendant of it.
// It is purely lexical and never touches the filesystem, so the answer does
// not depend on whether the target exists.
func SanitizePath(root, requested string) (string, bool) {
	// Absolute paths and drive-qualified paths never override root.
	if filepath.VolumeName(requested) != "" {
		return "", false
	}
	if r, _ := utf8.DecodeRuneInString(requested); isSeparator(r) {
		return "", false
	}

	var segments []string
	for _, part := range splitPath(requested) {
		switch part {
		case ".":
		case "..":
			// Never climb above the depth reached so far.
			if len(segments) == 0 {
				return "", false
			}
			segments = segments[:len(segments)-1]
		default:
			segments = append(segments, part)
		}
	}

	fsPath := filepath.Join(append([]string{root}, segments...)...)
	if !withinRoot(root, fsPath) {
		return "", false
	}
	return fsPath, true
}

// withinRoot reports whether fsPath equals root or lies beneath it, comparing
// whole path components so that /srv/www does not contain /srv/www2.
func withinRoot(root, fsPath string) bool {
	rootParts := components(root)
	parts := components(fsPath)
	if len(parts) < len(rootParts) {
		return false
	}
	for i := range rootParts {
		if rootParts[i] != parts[i] {
			return false
		}
	}
	return true
}

// components splits a cleaned path into its elements. An absolute path gets
// its volume and leading separator as the first element.
func components(p string) []string {
	p = filepath.Clean(p)
	if p == "." {
		return nil
	}

	var parts []string
	vol := filepath.VolumeName(p)
	rest := p[len(vol):]
	if r, _ := utf8.DecodeRuneInString(rest); isSeparator(r) {
		parts = append(parts, vol+string(filepath.Separator))
	} else if vol != "" {
		parts = append(parts, vol)
	}
	return append(parts, splitPath(rest)...)
}

// splitPath splits p on '/' and the OS separator, dropping empty elements.
func splitPath(p string) []string {
	return strings.FieldsFunc(p, isSeparator)
}

func isSeparator(r rune) bool {
	return r == '/' || (r < utf8.RuneSelf && os.IsPathSeparator(uint8(r)))
}
