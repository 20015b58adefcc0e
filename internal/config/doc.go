// Package config loads, normalizes, and validates the TOML configuration
// for subweave.
//
// Configuration is resolved from an explicit path, then
// ~/.config/subweave/config.toml, then ./subweave.toml. A missing file is
// fine; defaults apply. Secrets may come from the environment
// (SUBWEAVE_EMBEDDING_API_KEY, SUBWEAVE_EMBEDDING_BASE_URL).
package config
