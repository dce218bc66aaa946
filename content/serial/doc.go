// Package serial provides the dispatch primitives the content packages use to
// run callback chains without growing the call stack.
//
// Key features:
//   - Iterator: a trampoline that turns a chain of synchronous completions
//     into a loop instead of recursion
//   - Serializer: a FIFO task runner that never runs two tasks at the same
//     time and never nests one task inside another
//   - Panics raised by user callbacks are recovered and reported as errors
package serial
