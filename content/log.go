package content

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	nop := zerolog.Nop()
	logger.Store(&nop)
}

// SetLogger installs the logger used by the content packages. They are
// silent until one is installed.
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}

// Log returns the installed logger.
func Log() *zerolog.Logger {
	return logger.Load()
}
