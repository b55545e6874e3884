package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\s]`)

// SanitizeFilename replaces characters that are unsafe in filenames, drops
// control characters and bounds the length.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "_")

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	if len(cleaned) > 255 {
		cleaned = cleaned[:255]
	}

	return cleaned
}

// NormalizeURL normalizes a URL for comparison: query and fragment removed,
// trailing slash trimmed, host lowercased.
func NormalizeURL(url string) string {
	if idx := strings.IndexAny(url, "?#"); idx > 0 {
		url = url[:idx]
	}
	url = strings.TrimSuffix(url, "/")

	if idx := strings.Index(url, "://"); idx > 0 {
		protocol := url[:idx+3]
		rest := url[idx+3:]
		if slashIdx := strings.Index(rest, "/"); slashIdx > 0 {
			url = protocol + strings.ToLower(rest[:slashIdx]) + rest[slashIdx:]
		} else {
			url = protocol + strings.ToLower(rest)
		}
	}

	return url
}
