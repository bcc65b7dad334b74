// Package embeddings turns chunk and query text into dense vectors.
//
// Three providers are available behind the Provider interface: a TEI
// (text-embeddings-inference) HTTP client, an Ollama client and a local
// FastEmbed ONNX model (cgo builds only). Every provider returns
// L2-normalized vectors so that cosine similarity equals the dot product.
package embeddings
