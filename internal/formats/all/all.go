// Package all registers every built-in format handler. Import it for side
// effects from binaries and integration tests:
//
//	import _ "github.com/verseflow/verseflow/internal/formats/all"
package all

import (
	_ "github.com/verseflow/verseflow/internal/formats/json"
	_ "github.com/verseflow/verseflow/internal/formats/markdown"
	_ "github.com/verseflow/verseflow/internal/formats/tsv"
	_ "github.com/verseflow/verseflow/internal/formats/txt"
	_ "github.com/verseflow/verseflow/internal/formats/usfm"
	_ "github.com/verseflow/verseflow/internal/formats/xml"
)
