// Package upstream handles the provider-facing side of the metering
// gateway: transparent request forwarding and usage extraction from
// provider responses.
//
// # Transparency
//
// The gateway never rewrites provider traffic. The forwarder replays the
// client's method, path, headers and body against the provider base URL
// and hands the provider's response back byte for byte. Metering reads a
// copy of the response; it never sits between the bytes and the client.
//
// # Usage Extraction
//
// Providers report token usage in their response bodies in two wire
// dialects, the OpenAI chat completion shape (usage.prompt_tokens) and
// the Anthropic messages shape (usage.input_tokens). Extractors parse
// both for unary responses, and stream accumulators reassemble usage from
// SSE streams, where OpenAI reports usage in the final chunk and
// Anthropic splits it across message_start and message_delta events.
//
// When a response carries no parseable usage, a conservative estimate
// derived from the response size is used instead and the event is marked
// estimated rather than dropped.
package upstream
