// Package audit implements async event dispatching for security-relevant operations.
//
// # Components
//
//   - [Sink] is the interface for event consumers (channel, JSON writer, slog, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics, or a synchronous pass-through.
//   - [Event] is the structured audit record with timestamp, type, account, IP and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit. That responsibility belongs to the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goGate or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
