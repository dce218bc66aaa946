// Package sink provides concrete content sinks: an in-memory Buffer that
// records every write, an io.Writer adapter and Discard.
//
// Each sink completes callbacks through a serial.Serializer, so a callback
// that writes again is queued rather than nested.
package sink
