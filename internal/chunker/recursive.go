package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is the default maximum chunk length in runes.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the default overlap between adjacent chunks.
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order, from paragraph breaks down to
// single runes.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", "; ", ", ", " ", ""}

// ConfigError reports invalid splitter parameters.
type ConfigError struct {
	Size    int
	Overlap int
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid chunker config (size=%d, overlap=%d): %s", e.Size, e.Overlap, e.Reason)
}

// Recursive is a separator-driven splitter with overlap.
type Recursive struct {
	size          int
	overlap       int
	separators    []string
	keepSeparator bool
}

// NewRecursive validates parameters and returns a splitter. An empty
// separator list selects DefaultSeparators.
func NewRecursive(size, overlap int, separators []string, keepSeparator bool) (*Recursive, error) {
	switch {
	case size <= 0:
		return nil, &ConfigError{Size: size, Overlap: overlap, Reason: "size must be positive"}
	case overlap < 0:
		return nil, &ConfigError{Size: size, Overlap: overlap, Reason: "overlap must not be negative"}
	case overlap >= size:
		return nil, &ConfigError{Size: size, Overlap: overlap, Reason: "overlap must be smaller than size"}
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	seps := make([]string, len(separators))
	copy(seps, separators)
	return &Recursive{
		size:          size,
		overlap:       overlap,
		separators:    seps,
		keepSeparator: keepSeparator,
	}, nil
}

// NewDefaultRecursive returns a splitter with the default size, overlap and
// separators, keeping separators.
func NewDefaultRecursive() *Recursive {
	r, _ := NewRecursive(DefaultChunkSize, DefaultChunkOverlap, nil, true)
	return r
}

// Size returns the configured chunk size.
func (r *Recursive) Size() int { return r.size }

// Overlap returns the configured chunk overlap.
func (r *Recursive) Overlap() int { return r.overlap }

// Split segments text. Returned chunks are trimmed and never blank.
func (r *Recursive) Split(text string) []string {
	if text == "" {
		return []string{}
	}
	return nonBlank(r.split(text, r.separators))
}

// splitState is the accumulator threaded through one separator level.
type splitState struct {
	parts  []string
	length int
	out    []string
}

func (r *Recursive) split(text string, separators []string) []string {
	if runeLen(text) <= r.size {
		return []string{text}
	}
	if len(separators) == 0 {
		return r.splitBySize(text)
	}

	next := separators[1:]
	var st splitState
	for _, piece := range splitOn(text, separators[0], r.keepSeparator) {
		st = r.push(st, piece, next)
	}
	st = r.finish(st, next)
	return nonBlank(st.out)
}

// push adds piece to the running buffer, closing the buffer first when the
// piece would overflow it.
func (r *Recursive) push(st splitState, piece string, next []string) splitState {
	pieceLen := runeLen(piece)
	if st.length+pieceLen <= r.size || len(st.parts) == 0 {
		return splitState{
			parts:  append(st.parts, piece),
			length: st.length + pieceLen,
			out:    st.out,
		}
	}

	closed := strings.TrimSpace(strings.Join(st.parts, ""))
	out := r.emit(st.out, closed, next)

	tail := lastRunes(closed, r.overlap)
	tailLen := runeLen(tail)
	if tailLen+pieceLen <= r.size {
		return splitState{parts: []string{tail, piece}, length: tailLen + pieceLen, out: out}
	}

	// The seed cannot hold both: the tail stands alone and the piece starts
	// a fresh buffer.
	if tail != "" {
		out = r.emit(out, tail, next)
	}
	if pieceLen > r.size {
		return splitState{out: append(out, r.split(piece, next)...)}
	}
	return splitState{parts: []string{piece}, length: pieceLen, out: out}
}

// finish closes the final buffer.
func (r *Recursive) finish(st splitState, next []string) splitState {
	if len(st.parts) == 0 {
		return st
	}
	last := strings.TrimSpace(strings.Join(st.parts, ""))
	return splitState{out: r.emit(st.out, last, next)}
}

// emit appends chunk to out, re-splitting it when still oversized.
func (r *Recursive) emit(out []string, chunk string, next []string) []string {
	if chunk == "" {
		return out
	}
	if runeLen(chunk) > r.size {
		return append(out, r.split(chunk, next)...)
	}
	return append(out, chunk)
}

// splitBySize slices text at a fixed stride of size-overlap runes.
func (r *Recursive) splitBySize(text string) []string {
	runes := []rune(text)
	if len(runes) <= r.size {
		return []string{text}
	}
	stride := r.size - r.overlap
	if stride < 1 {
		stride = 1
	}
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := min(start+r.size, len(runes))
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitOn splits text on sep. With keep set, each piece retains its
// trailing separator. An empty separator splits into runes.
func splitOn(text, sep string, keep bool) []string {
	if sep == "" {
		pieces := make([]string, 0, runeLen(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	var raw []string
	if keep {
		raw = strings.SplitAfter(text, sep)
	} else {
		raw = strings.Split(text, sep)
	}
	pieces := raw[:0]
	for _, p := range raw {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func nonBlank(chunks []string) []string {
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
