// Package process starts the sender executable and hands back its standard input.
package process

import (
	"fmt"
	"io"
	"strings"

	"github.com/atlassian/zbxshipper"
)

// Spawner starts an executable and returns a writer connected to its standard input.
type Spawner interface {
	// Spawn starts name with args. It always returns a usable WriteCloser; if the process could not be started the
	// failure is reported to onError (when it is not nil) and everything written is discarded. Closing the returned
	// writer signals end of input to the process.
	Spawn(name string, args []string, onError zbxshipper.ErrorCallback) io.WriteCloser
}

// SpawnError is reported when the executable could not be started, e.g. because it was not found.
type SpawnError struct {
	Binary string
	Args   []string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s %s: %v", e.Binary, strings.Join(e.Args, " "), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
