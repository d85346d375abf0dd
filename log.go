package termimage

import (
	"sync/atomic"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
)

type loggerBox struct{ l log.Interface }

var logger atomic.Pointer[loggerBox]

func init() {
	SetLogger(nil)
}

// SetLogger routes library logs (capability probes, render timings) to l.
// Logging is discarded until a logger is set.
func SetLogger(l log.Interface) {
	if l == nil {
		l = &log.Logger{Handler: discard.Default, Level: log.InfoLevel}
	}
	logger.Store(&loggerBox{l: l})
}

func logf() log.Interface {
	return logger.Load().l
}
