// Package formats maps format tokens to handlers that convert between raw
// bytes and the canonical record set. Handlers live in subpackages and
// register themselves at init; importing internal/formats/all pulls in the
// full set.
package formats

import (
	"sort"
	"strings"
	"sync"

	verrors "github.com/verseflow/verseflow/core/errors"
	"github.com/verseflow/verseflow/core/record"
	"github.com/verseflow/verseflow/internal/checks"
)

// Handler converts one format to and from the canonical record set.
type Handler interface {
	// Name is the primary format token ("tsv", "usfm", ...).
	Name() string

	// Parse converts raw bytes into a record set. Malformed input yields a
	// *errors.ParseError; rows are never silently dropped.
	Parse(data []byte) (*record.Set, error)

	// Serialize converts a record set back into bytes. Issues, when
	// supplied, are annotated into the output where the format can carry
	// them. Content the format cannot represent yields a
	// *errors.SerializeError; data is never truncated.
	Serialize(set *record.Set, issues []checks.Issue) ([]byte, error)
}

var (
	mu       sync.RWMutex
	handlers = make(map[string]Handler)
	aliases  = make(map[string]string)
)

// Register adds a handler under its name plus any alias tokens.
// Called from handler package init functions.
func Register(h Handler, aliasTokens ...string) {
	mu.Lock()
	defer mu.Unlock()
	handlers[h.Name()] = h
	for _, a := range aliasTokens {
		aliases[strings.ToLower(a)] = h.Name()
	}
}

// Get resolves a case-insensitive format token to its handler.
func Get(token string) (Handler, error) {
	name := strings.ToLower(strings.TrimSpace(token))
	mu.RLock()
	defer mu.RUnlock()
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	h, ok := handlers[name]
	if !ok {
		return nil, &verrors.UnknownFormatError{Token: token}
	}
	return h, nil
}

// Tokens returns the primary tokens of all registered handlers, sorted.
func Tokens() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Parse dispatches to the handler for token and stamps set provenance
// (source format and BLAKE3 hash of the input bytes).
func Parse(token string, data []byte) (*record.Set, error) {
	h, err := Get(token)
	if err != nil {
		return nil, err
	}
	set, err := h.Parse(data)
	if err != nil {
		return nil, err
	}
	set.SourceFormat = h.Name()
	set.ComputeSourceHash(data)
	return set, nil
}

// Serialize dispatches to the handler for token.
func Serialize(token string, set *record.Set, issues []checks.Issue) ([]byte, error) {
	h, err := Get(token)
	if err != nil {
		return nil, err
	}
	return h.Serialize(set, issues)
}
