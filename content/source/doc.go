// Package source provides concrete content.Source implementations.
//
// Key features:
//   - Bytes: in-memory content, rewindable, with a known length
//   - Chunks: replay of pre-built chunks
//   - Async: a Source that is also a Sink, bridging a pushing producer to a
//     pulling consumer with write completion as backpressure
//   - Reader: demand-driven reads from an io.Reader into pooled buffers
//
// Every source dispatches demand callbacks through a serial.Serializer, so
// callbacks never overlap and re-demanding from a callback never recurses.
// A panicking demand callback fails the source.
package source
