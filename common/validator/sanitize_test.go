package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input       string
		expected    string
		description string
	}{
		{"photo.jpg", "photo.jpg", "plain name"},
		{"../../etc/passwd", "passwd", "unix traversal"},
		{`C:\Users\me\shoe.png`, "shoe.png", "windows path"},
		{"my <bag>.heic", "my bag.heic", "markup characters"},
		{`say"hi".png`, "sayhi.png", "quotes"},
		{"", "upload", "empty name"},
		{"..", "upload", "dot dot"},
		{"***", "upload", "only unsafe characters"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeFilename(tc.input))
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".jpeg"
	got := SanitizeFilename(long)
	assert.Len(t, got, 255)
	assert.True(t, strings.HasSuffix(got, ".jpeg"))
}

func TestSanitizeComment(t *testing.T) {
	assert.Equal(t, "", SanitizeComment("   "))
	assert.Equal(t, "stitching looks off", SanitizeComment("  stitching looks off \n"))

	long := strings.Repeat("é", 600)
	assert.Equal(t, MaxCommentLength, len([]rune(SanitizeComment(long))))
}

func TestIsValidRequestID(t *testing.T) {
	assert.True(t, IsValidRequestID("3f2b8a9e-4c1d-4f6a-9b2e-7d8c9a0b1c2d"))
	assert.False(t, IsValidRequestID(""))
	assert.False(t, IsValidRequestID("not-a-uuid"))
	assert.False(t, IsValidRequestID("3f2b8a9e4c1d4f6a9b2e7d8c9a0b1c2d"))
	assert.False(t, IsValidRequestID("urn:uuid:3f2b8a9e-4c1d-4f6a-9b2e-7d8c9a0b1c2d"))
}
