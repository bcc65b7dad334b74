// Package corpus defines the data model shared by ingestion and retrieval.
//
// A document is parsed into transient Blocks, which are chunked and annotated
// into immutable Chunks. Chunks are persisted as a JSON array by Store and
// referenced by id from the vector index.
//
// # Identity
//
// Chunk ids are a keyed HighwayHash-256 over the document name, the chunk
// index within that document and the chunk text. Re-running ingestion over
// unchanged input produces identical ids.
//
// # Consistency
//
// The chunk store and the vector index are built together. A store whose
// record count differs from the index vector count is rejected with
// *IndexConsistencyError and must not be served.
package corpus
