// Package align implements the semantic alignment engine: coarse DTW over
// token embeddings, windowed refinement of ambiguous assignments,
// non-overlap and extended-cut extraction, and the orchestrating state
// machine that sequences the stages per mode.
//
// Everything here is a pure transformation over explicit inputs; the only
// external dependency is the Embedder, which turns batches of short texts
// into fixed-length vectors. All similarity is cosine over those vectors.
package align
