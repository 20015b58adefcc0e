// Package embedding provides an HTTP client for OpenAI-compatible
// text-embedding endpoints.
//
// The alignment engine consumes embeddings purely through cosine
// similarity, so any endpoint serving a multilingual sentence model works;
// the default model is LaBSE.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Embed: embed a batch of texts, one vector per input in order.
// Client.HealthCheck: verify endpoint, key, and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default),
// honoring Retry-After when the server sends it. Context cancellation
// aborts retries immediately.
package embedding
