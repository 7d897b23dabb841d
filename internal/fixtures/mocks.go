package fixtures

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atlassian/zbxshipper"
)

// ErrWriteAfterClose is returned by RecordingInput.Write once the input was closed.
var ErrWriteAfterClose = errors.New("write after close")

// RecordingInput is an io.WriteCloser standing in for a child's standard input.
type RecordingInput struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	writes int
	closes int
}

func (r *RecordingInput) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closes > 0 {
		return 0, ErrWriteAfterClose
	}
	r.writes++
	return r.buf.Write(p)
}

func (r *RecordingInput) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closes++
	return nil
}

// String returns everything written before the first Close.
func (r *RecordingInput) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.String()
}

// Writes returns the number of successful Write calls.
func (r *RecordingInput) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes
}

// Closes returns the number of Close calls.
func (r *RecordingInput) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}

// SpawnCall is one recorded MockSpawner.Spawn invocation. Input is the writer handed out, or nil when FnSpawn
// returned something other than a *RecordingInput.
type SpawnCall struct {
	Name    string
	Args    []string
	OnError zbxshipper.ErrorCallback
	Input   *RecordingInput
}

// MockSpawner implements process.Spawner and records every call. FnSpawn, when set, can return its own writer.
type MockSpawner struct {
	TB      testing.TB
	FnSpawn func(name string, args []string, onError zbxshipper.ErrorCallback) io.WriteCloser

	mu    sync.Mutex
	calls []SpawnCall
}

func (m *MockSpawner) Spawn(name string, args []string, onError zbxshipper.ErrorCallback) io.WriteCloser {
	if name == "" {
		assert.Fail(m.TB, "Spawner.Spawn must be called with an executable")
	}
	call := SpawnCall{
		Name:    name,
		Args:    append([]string(nil), args...),
		OnError: onError,
	}
	var input io.WriteCloser
	if m.FnSpawn != nil {
		input = m.FnSpawn(name, args, onError)
		call.Input, _ = input.(*RecordingInput)
	} else {
		call.Input = &RecordingInput{}
		input = call.Input
	}
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	return input
}

// Calls returns a copy of the recorded calls.
func (m *MockSpawner) Calls() []SpawnCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SpawnCall(nil), m.calls...)
}

// OnlyCall asserts exactly one Spawn happened and returns it.
func (m *MockSpawner) OnlyCall() SpawnCall {
	calls := m.Calls()
	if !assert.Len(m.TB, calls, 1, "expected exactly one spawn") {
		m.TB.FailNow()
	}
	return calls[0]
}
