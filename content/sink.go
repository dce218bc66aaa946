package content

// Callback completes an asynchronous operation; a nil err means success.
type Callback func(err error)

// Sink is a push-based consumer of bytes.
//
// Write hands b to the sink, with last marking the end of the content, and
// calls cb when b may be reused. The next Write must wait for cb. Callbacks
// of successive writes never overlap and a callback that writes again does
// not recurse. A failed write is not retried by the sink.
type Sink interface {
	Write(last bool, b []byte, cb Callback)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(last bool, b []byte, cb Callback)

func (f SinkFunc) Write(last bool, b []byte, cb Callback) { f(last, b, cb) }

// WriteString writes s as UTF-8 text.
func WriteString(sink Sink, last bool, s string, cb Callback) {
	sink.Write(last, []byte(s), cb)
}
