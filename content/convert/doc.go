// Package convert adapts content sources and sinks to byte slices, strings,
// io streams and channels.
//
// The callback forms never block. The context forms block the caller and
// fail the source with ctx.Err() when the context is done.
package convert
