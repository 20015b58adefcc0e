// Command subweave aligns two subtitle files by meaning and writes a
// merged bilingual track.
//
// The merge command does the work; the config command manages the TOML
// configuration the merge reads its defaults from.
package main
