package validator

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxFilenameLength = 255
	// MaxCommentLength caps free-text feedback comments
	MaxCommentLength = 500
	fallbackFilename = "upload"
)

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s\-.]`)

// SanitizeFilename strips path components and unsafe characters from an
// uploaded file name and caps its length, keeping the extension.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if len(name) > maxFilenameLength {
		ext := filepath.Ext(name)
		if len(ext) > maxFilenameLength-1 {
			ext = ""
		}
		name = name[:maxFilenameLength-len(ext)] + ext
	}

	if name == "" || name == "." || name == ".." {
		return fallbackFilename
	}
	return name
}

// SanitizeComment trims a feedback comment and caps it at MaxCommentLength runes.
// An empty result means no comment.
func SanitizeComment(comment string) string {
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentLength {
		runes := []rune(comment)
		comment = strings.TrimSpace(string(runes[:MaxCommentLength]))
	}
	return comment
}

// IsValidRequestID reports whether id is a canonical UUID
func IsValidRequestID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
