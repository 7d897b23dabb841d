package fixtures

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/zbxshipper"
)

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestMockSpawnerRecordsItsOwnInput(t *testing.T) {
	t.Parallel()
	m := &MockSpawner{TB: t}
	w := m.Spawn("zabbix_sender", []string{"--input-file", "-"}, nil)
	_, err := io.WriteString(w, "- k v\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	call := m.OnlyCall()
	require.NotNil(t, call.Input)
	assert.Same(t, w, call.Input)
	assert.Equal(t, "- k v\n", call.Input.String())
	assert.Equal(t, 1, call.Input.Closes())
}

func TestMockSpawnerRecordsFnSpawnInput(t *testing.T) {
	t.Parallel()
	input := &RecordingInput{}
	m := &MockSpawner{
		TB: t,
		FnSpawn: func(name string, args []string, onError zbxshipper.ErrorCallback) io.WriteCloser {
			return input
		},
	}
	w := m.Spawn("zabbix_sender", nil, nil)
	_, _ = io.WriteString(w, "- k v\n")

	call := m.OnlyCall()
	assert.Same(t, input, call.Input)
	assert.Equal(t, "- k v\n", call.Input.String())
}

func TestMockSpawnerForeignInputIsNotRecorded(t *testing.T) {
	t.Parallel()
	m := &MockSpawner{
		TB: t,
		FnSpawn: func(name string, args []string, onError zbxshipper.ErrorCallback) io.WriteCloser {
			return nopWriteCloser{io.Discard}
		},
	}
	_ = m.Spawn("zabbix_sender", nil, nil)
	assert.Nil(t, m.OnlyCall().Input)
}

func TestRecordingInputRejectsWritesAfterClose(t *testing.T) {
	t.Parallel()
	r := &RecordingInput{}
	require.NoError(t, r.Close())
	_, err := r.Write([]byte("late"))
	assert.ErrorIs(t, err, ErrWriteAfterClose)
	assert.Zero(t, r.Writes())
}
