// Package pathcodec maps absolute file paths to collision-free storage keys.
//
// A storage key carries no path separators, no drive colon, and never starts
// with a dash, so it passes through the backend command layer untouched. The
// mapping is injective: distinct cleaned paths always yield distinct keys,
// and Decode recovers the exact path a key was derived from.
package pathcodec

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPath reports a path that cannot be encoded as a storage key,
// or a key that is not a valid encoding.
var ErrInvalidPath = errors.New("invalid path")

// Escape pairs. Every '!' in a key starts a two-byte escape, so no plain
// byte can collide with an escaped one.
const (
	escBang      = "!!" // literal '!'
	escSlash     = "!s" // '/'
	escBackslash = "!b" // '\'
	escColon     = "!c" // ':' (drive letters)
)

// Encode converts an absolute path into its storage key.
// The path is cleaned first, so equivalent spellings share one key.
func Encode(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path: %w", ErrInvalidPath)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("path %q is not absolute: %w", path, ErrInvalidPath)
	}

	clean := filepath.Clean(path)

	var b strings.Builder
	b.Grow(len(clean) + 8)
	for i := 0; i < len(clean); i++ {
		switch clean[i] {
		case '!':
			b.WriteString(escBang)
		case '/':
			b.WriteString(escSlash)
		case '\\':
			b.WriteString(escBackslash)
		case ':':
			b.WriteString(escColon)
		default:
			b.WriteByte(clean[i])
		}
	}

	key := b.String()
	if strings.HasPrefix(key, "-") {
		return "", fmt.Errorf("key for %q starts with a dash: %w", path, ErrInvalidPath)
	}
	return key, nil
}

// Decode recovers the absolute path a storage key was derived from.
func Decode(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty key: %w", ErrInvalidPath)
	}

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c != '!' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(key) {
			return "", fmt.Errorf("dangling escape in key %q: %w", key, ErrInvalidPath)
		}
		switch key[i] {
		case '!':
			b.WriteByte('!')
		case 's':
			b.WriteByte('/')
		case 'b':
			b.WriteByte('\\')
		case 'c':
			b.WriteByte(':')
		default:
			return "", fmt.Errorf("unknown escape %q in key %q: %w", key[i-1:i+1], key, ErrInvalidPath)
		}
	}
	return b.String(), nil
}
