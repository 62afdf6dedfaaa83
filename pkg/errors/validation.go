package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// slugRegex matches valid document slugs: lowercase alphanumerics separated
// by single dashes, with optional slash-separated namespace segments
// (e.g. "skills/error-handling").
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*(/[a-z0-9]+(-[a-z0-9]+)*)*$`)

// ValidateSlug validates a document slug. Slugs double as store record
// IDs and artifact filenames, so the rules are conservative:
//   - No empty slugs
//   - Lowercase alphanumerics, dashes, and slash-separated segments only
//   - No path traversal sequences
//   - Maximum length of 256 characters
func ValidateSlug(slug string) error {
	if slug == "" {
		return New(ErrCodeInvalidSlug, "document slug cannot be empty")
	}

	if len(slug) > 256 {
		return New(ErrCodeInvalidSlug, "document slug too long (max 256 characters)")
	}

	if strings.Contains(slug, "..") {
		return New(ErrCodeInvalidSlug, "document slug cannot contain path traversal sequences (..)")
	}

	if !slugRegex.MatchString(slug) {
		return New(ErrCodeInvalidSlug, "invalid document slug: %q", slug)
	}

	return nil
}

// ValidatePath validates a corpus-relative file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateStoreURL validates a composition store endpoint URL.
// SurrealDB RPC endpoints use ws:// or wss:// schemes.
func ValidateStoreURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "store URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "ws://") && !strings.HasPrefix(rawURL, "wss://") {
		return New(ErrCodeInvalidInput, "store URL must use ws or wss scheme")
	}

	return nil
}
