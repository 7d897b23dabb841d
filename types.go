package zbxshipper

import (
	"context"
)

// ErrorCallback is handed to the process spawner by Shipper.Send. It is only ever called with an error that
// prevented the sender executable from starting. It may be nil.
type ErrorCallback func(error)

// Shipper forwards a data tree to the monitoring server.
type Shipper interface {
	// Send flattens data and writes it to a freshly spawned sender process. It does not wait for the process.
	Send(data Value, onError ErrorCallback)
}

// Runnable is a long running function intended to be launched in a goroutine.
type Runnable func(context.Context)

// Runner exposes a Runnable through an interface
type Runner interface {
	Run(context.Context)
}

func MaybeAppendRunnable(runnables []Runnable, maybeRunner interface{}) []Runnable {
	if r, ok := maybeRunner.(Runner); ok {
		runnables = append(runnables, r.Run)
	}
	return runnables
}
