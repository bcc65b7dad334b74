// Package chunker splits document text into bounded retrieval segments.
//
// Two strategies are provided:
//
//   - Recursive splits on a prioritized separator list, accumulating pieces
//     up to a size limit and seeding each new chunk with the tail of the
//     previous one. Oversized pieces are re-split with the next separators;
//     when none remain the text is sliced at a fixed stride.
//   - Semantic follows markdown structure (headings, lists, Q/A pairs,
//     tables) and attaches lightweight metadata to each block.
//
// All lengths are measured in runes. Both splitters are safe for concurrent
// use once constructed.
//
// The package also owns the markdown table codec used to render parsed
// tables into chunk text, and CleanText, the whitespace normalization
// applied by parsers before chunking.
package chunker
