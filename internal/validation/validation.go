// Package validation guards the upload and CLI surfaces: file size limits,
// filename sanitation, and content sniffing so binary uploads are rejected
// before they reach a parser.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	verrors "github.com/verseflow/verseflow/core/errors"
)

// Limits guarding against resource exhaustion.
const (
	// MaxUploadSize is the default maximum upload size (32 MB).
	MaxUploadSize = 32 << 20
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
)

// Common validation errors.
var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrFilenameTooLong = errors.New("filename too long")
	ErrBinaryContent   = errors.New("content does not look like text")
)

// CheckSize rejects input larger than limit with a ResourceLimitError.
// A zero or negative limit means unlimited.
func CheckSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return verrors.NewResourceLimit(size, limit)
	}
	return nil
}

// ValidateFilename checks if a filename is safe and does not contain malicious characters.
// It rejects filenames with path separators, control characters, and dangerous patterns.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}

	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}

	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}

	// Null bytes are a common injection vector.
	if strings.Contains(filename, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidFilename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}

	// Leading hyphens can be confused with command flags downstream.
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}

	return nil
}

// SanitizeFilename sanitizes a filename by removing or replacing invalid characters.
// This is useful when generating download filenames from user input.
func SanitizeFilename(filename string) (string, error) {
	if filename == "" {
		return "", ErrInvalidFilename
	}

	filename = strings.TrimSpace(filename)
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")
	filename = strings.ReplaceAll(filename, "\x00", "")

	var cleaned strings.Builder
	for _, r := range filename {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	filename = cleaned.String()
	filename = strings.TrimLeft(filename, "-")

	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	return filename, nil
}

// ValidateTextUpload rejects uploads whose leading bytes look binary. Every
// supported input format is text; anything else is refused up front.
func ValidateTextUpload(data []byte) error {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if len(head) > 0 && !IsLikelyText(head) {
		return ErrBinaryContent
	}
	return nil
}

// IsLikelyText checks if the buffer contains likely text content.
// Returns true if the buffer appears to be text (UTF-8, ASCII).
func IsLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return false
	}

	// Null bytes are a strong indicator of binary content.
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7e || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else if b < 0x20 {
			control++
		}
		// UTF-8 continuation bytes (0x80-0xBF) and start bytes (0xC0-0xFD) are neutral
	}

	// If more than 95% is printable, consider it text
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
