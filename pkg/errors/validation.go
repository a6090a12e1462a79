package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateImageName validates an uploaded file name for safety.
// It rejects names that could be used for path traversal or header injection
// when the name is echoed back in API responses or used in download headers.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 255 characters
func ValidateImageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidImage, "image name cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeInvalidImage, "image name too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidImage, "image name contains invalid control characters")
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidImage, "image name cannot contain path separators")
	}

	if name == "." || name == ".." {
		return New(ErrCodeInvalidImage, "image name %q is reserved", name)
	}

	return nil
}

// sessionIDRegex matches the canonical textual form of a UUID.
var sessionIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateSessionID checks that id looks like a session identifier issued by
// the studio. Session ids end up in blob keys and file names, so anything
// else is rejected before it reaches a store.
func ValidateSessionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "session id cannot be empty")
	}
	if !sessionIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid session id: %q", id)
	}
	return nil
}

// ValidatePath validates a blob key or relative file path for safety.
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

// hexColorRegex matches #rgb and #rrggbb colors.
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateHexColor validates a CSS-style hex color such as "#fff" or "#1e1e2e".
func ValidateHexColor(s string) error {
	if !hexColorRegex.MatchString(s) {
		return New(ErrCodeInvalidColor, "invalid color %q (want #rgb or #rrggbb)", s)
	}
	return nil
}
