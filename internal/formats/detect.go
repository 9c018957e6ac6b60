package formats

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

// extensionFormats maps file extensions to format tokens.
var extensionFormats = map[string]string{
	".tsv":  "tsv",
	".tab":  "tsv",
	".usfm": "usfm",
	".sfm":  "usfm",
	".md":   "markdown",
	".json": "json",
	".xml":  "xml",
	".txt":  "txt",
	".text": "txt",
}

var markdownRefLine = regexp.MustCompile(`(?m)^#{0,6}\s*\d?\s?[A-Za-z][A-Za-z ]*\s+\d+:\d+`)

// Detect guesses the format of an upload from its filename extension, then
// from content heuristics. It always returns a usable token; "txt" is the
// fallback for anything unstructured.
func Detect(filename string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if f, ok := extensionFormats[ext]; ok {
			return f
		}
	}
	return DetectContent(data)
}

// DetectContent guesses the format from content alone.
func DetectContent(data []byte) string {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	switch {
	case len(trimmed) == 0:
		return "txt"
	case trimmed[0] == '<':
		return "xml"
	case trimmed[0] == '[' || trimmed[0] == '{':
		return "json"
	case bytes.HasPrefix(trimmed, []byte(`\id`)) || bytes.Contains(data, []byte("\n\\v ")):
		return "usfm"
	}

	// A header row with tabs and a Book column is TSV.
	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}
	if bytes.Count(firstLine, []byte("\t")) >= 2 &&
		bytes.Contains(firstLine, []byte("Book")) {
		return "tsv"
	}

	if markdownRefLine.Match(data) {
		return "markdown"
	}
	return "txt"
}
