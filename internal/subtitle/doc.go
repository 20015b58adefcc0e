// Package subtitle defines the data model shared by the alignment engine:
// timed entries, token spans into a track's flat token sequence, and the
// merged bilingual fields produced by a merge run.
package subtitle
