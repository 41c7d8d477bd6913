// Package validator checks candidate uploads against the accepted image types
// and the configured size limit before anything reaches the network.
package validator

import (
	"fmt"
	"mime"
	"strings"
)

// DefaultMaxSizeMB is the upload limit used when none is configured
const DefaultMaxSizeMB = 10

const imagePrefix = "image/"

// AllowedTypes lists the accepted declared MIME types
var AllowedTypes = []string{
	"image/jpeg",
	"image/jpg",
	"image/png",
	"image/heic",
	"image/heif",
}

// Messages surfaced to the user
const (
	MsgInvalidType = "Invalid file type. Please upload a JPEG, PNG, or HEIC image."
	msgSizeFormat  = "File size exceeds the %dMB limit."
)

// FileInfo describes a candidate upload
type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// Result is the outcome of a validation
type Result struct {
	Valid bool
	Error string
}

// Validator validates files against a fixed allow-list and a size limit
type Validator struct {
	maxSizeMB int
}

// New creates a validator with the given limit in megabytes.
// Non-positive limits fall back to DefaultMaxSizeMB.
func New(maxSizeMB int) *Validator {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}
	return &Validator{maxSizeMB: maxSizeMB}
}

// MaxBytes returns the size limit in bytes
func (v *Validator) MaxBytes() int64 {
	return int64(v.maxSizeMB) * 1024 * 1024
}

// MaxSizeMB returns the size limit in megabytes
func (v *Validator) MaxSizeMB() int {
	return v.maxSizeMB
}

// Validate checks the declared type and size of a file.
// The size limit is checked first so oversize files always report it.
func (v *Validator) Validate(f FileInfo) Result {
	if f.Size > v.MaxBytes() {
		return Result{Error: fmt.Sprintf(msgSizeFormat, v.maxSizeMB)}
	}

	mediaType := normalizeType(f.ContentType)
	if !strings.HasPrefix(mediaType, imagePrefix) {
		return Result{Error: MsgInvalidType}
	}
	if !IsAllowedType(mediaType) {
		return Result{Error: MsgInvalidType}
	}

	return Result{Valid: true}
}

// Validate checks a file with the default limit
func Validate(f FileInfo) Result {
	return New(DefaultMaxSizeMB).Validate(f)
}

// IsAllowedType reports whether a declared MIME type is in the allow-list
func IsAllowedType(contentType string) bool {
	mediaType := normalizeType(contentType)
	for _, allowed := range AllowedTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// normalizeType lowercases a MIME type and strips its parameters
func normalizeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}
