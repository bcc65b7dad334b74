// Package metadata annotates chunk text with structured facts using
// vocabulary lookups and regular expressions.
//
// Patterns are compiled with regexp2 so that word boundaries and \w behave
// on Cyrillic text and lookbehind assertions are available. Every pattern
// carries a match timeout. A pattern that fails or times out produces an
// *ExtractionWarning; the extractor logs it and drops that signal, it never
// fails the chunk.
//
// Extraction is deterministic: list fields are sorted and deduplicated, so
// two calls on the same input produce byte-identical JSON.
package metadata
