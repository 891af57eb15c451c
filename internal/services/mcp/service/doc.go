// Package service wires protocol transport to domain services.
//
// It is the transport adapter layer: the package knows how to run MCP over
// stdio or HTTP and delegates business meaning to domain handlers in the
// MCP package.
package service
