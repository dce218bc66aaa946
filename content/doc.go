// Package content defines a backpressure-aware, zero-copy contract for
// streaming a message body between a producer and a consumer.
//
// Key features:
//   - Chunk: an immutable, reference-counted view over a byte range with a
//     last marker, an error variant and zero-copy slicing
//   - Source: a pull contract (Read, Demand, Fail, optional Rewind/Length)
//     where a nil read means "nothing yet, demand and come back"
//   - Sink: a push contract where every write carries the last marker and
//     completes through a Callback
//   - Copy: an iterative driver that drains a Source into a Sink, with an
//     optional Processor to intercept chunks, in constant stack space
//
// Ownership follows the retain/release discipline: whoever reads a chunk
// from a Source owns one reference and must Release it; slices retain their
// parent. Misusing the contract (retaining a terminal chunk, over-releasing,
// demanding twice) panics with one of the sentinel errors of this package.
package content
