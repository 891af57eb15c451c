// Package domain translates MCP tool calls into chain node operations.
//
// The package is intentionally explicit about that mapping:
// - validate MCP tool input,
// - route the call through the chain HTTP client,
// - and surface structured outputs that MCP clients can render.
//
// This keeps MCP behavior auditable from protocol message -> node request ->
// receipt or query result.
package domain
