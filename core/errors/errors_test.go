package errors

import (
	stderrors "errors"
	"testing"
)

func TestParseErrorMessage(t *testing.T) {
	err := NewParse("tsv", 3, "chapter is not numeric")
	want := "parse tsv: line 3: chapter is not numeric"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	// Line 0 omits the line segment.
	err = NewParse("json", 0, "bad document")
	want = "parse json: bad document"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSentinelUnwrapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"parse", NewParse("tsv", 1, "x"), ErrMalformedInput},
		{"serialize", NewSerialize("xml", "x"), ErrUnrepresentable},
		{"resource limit", NewResourceLimit(100, 10), ErrResourceLimit},
		{"unknown format", &UnknownFormatError{Token: "docx"}, ErrUnknownFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !stderrors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v should unwrap to %v", tt.err, tt.sentinel)
			}
		})
	}
}

func TestAsRecoversTypedError(t *testing.T) {
	var parseErr *ParseError
	err := Wrap(NewParsef("usfm", 7, "verse %q is not numeric", "x"), "ingest failed")
	if !As(err, &parseErr) {
		t.Fatal("As should find the ParseError through the wrap")
	}
	if parseErr.Line != 7 || parseErr.Format != "usfm" {
		t.Errorf("recovered ParseError = %+v", parseErr)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	if Wrapf(nil, "context %d", 1) != nil {
		t.Error("Wrapf(nil) should be nil")
	}
}

func TestResourceLimitFields(t *testing.T) {
	err := NewResourceLimit(2048, 1024)
	var rle *ResourceLimitError
	if !As(err, &rle) {
		t.Fatal("expected ResourceLimitError")
	}
	if rle.Size != 2048 || rle.Limit != 1024 {
		t.Errorf("fields = %+v", rle)
	}
}
