// Package id generates the identifiers synthesized while decoding flows.
//
// Flow payloads frequently omit element, option and screen identifiers. The
// decoder fills the gaps with prefixed ULIDs:
//   - Prefixed: el_*, opt_*, scr_* make logs readable
//   - K-sortable: ids synthesized for one document sort in decode order
//   - Injectable entropy: tests can make generation deterministic
//
// Synthesized ids are unique but not stable across re-fetches of the same
// document; they live as long as the decoded instance (or its cached copy).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ElementID identifies a decoded flow element
type ElementID string

// OptionID identifies an option inside a choice group
type OptionID string

// ScreenID identifies a flow screen
type ScreenID string

const (
	ElementPrefix = "el"
	OptionPrefix  = "opt"
	ScreenPrefix  = "scr"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
	now       func() time.Time
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator backed by crypto/rand
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Paired with a fixed clock it yields a reproducible sequence.
func NewGeneratorWithEntropy(entropy io.Reader, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{
		entropy: ulid.Monotonic(entropy, 0),
		now:     now,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// Element returns a fresh element id
func (g *Generator) Element() ElementID {
	return ElementID(g.GenerateWithPrefix(ElementPrefix))
}

// Option returns a fresh choice option id
func (g *Generator) Option() OptionID {
	return OptionID(g.GenerateWithPrefix(OptionPrefix))
}

// Screen returns a fresh screen id
func (g *Generator) Screen() ScreenID {
	return ScreenID(g.GenerateWithPrefix(ScreenPrefix))
}

func (id ElementID) String() string { return string(id) }
func (id OptionID) String() string  { return string(id) }
func (id ScreenID) String() string  { return string(id) }

// IsSynthesized reports whether s looks like an id produced by a Generator
// for the given prefix.
func IsSynthesized(s, prefix string) bool {
	rest, ok := strings.CutPrefix(s, prefix+"_")
	if !ok {
		return false
	}
	_, err := ulid.Parse(rest)
	return err == nil
}

// Timestamp extracts the generation time from a synthesized id
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
