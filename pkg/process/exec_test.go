package process

import (
	"errors"
	"io/ioutil"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlassian/zbxshipper/internal/fixtures"
)

func requireShell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
}

func TestExecSpawnerWritesToStdin(t *testing.T) {
	t.Parallel()
	requireShell(t)
	out := filepath.Join(t.TempDir(), "out")

	s := NewExecSpawner(fixtures.NewTestLogger(t))
	w := s.Spawn("sh", []string{"-c", `cat > "$1"`, "sh", out}, func(err error) {
		t.Errorf("unexpected error: %v", err)
	})
	_, err := w.Write([]byte("- keyA.keyB propC\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	s.Wait()

	b, err := ioutil.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "- keyA.keyB propC\n", string(b))
}

func TestExecSpawnerCloseTwice(t *testing.T) {
	t.Parallel()
	requireShell(t)

	s := NewExecSpawner(fixtures.NewTestLogger(t))
	w := s.Spawn("sh", []string{"-c", "cat > /dev/null"}, nil)
	require.NoError(t, w.Close())
	require.Error(t, w.Close())
	s.Wait()
}

func TestExecSpawnerNonZeroExitIsNotReported(t *testing.T) {
	t.Parallel()
	requireShell(t)

	s := NewExecSpawner(fixtures.NewTestLogger(t))
	w := s.Spawn("sh", []string{"-c", "echo failed >&2; exit 2"}, func(err error) {
		t.Errorf("unexpected error: %v", err)
	})
	_, _ = w.Write([]byte("h k v\n"))
	_ = w.Close()
	s.Wait()
}

func TestExecSpawnerNotFound(t *testing.T) {
	t.Parallel()

	var reported []error
	s := NewExecSpawner(fixtures.NewTestLogger(t))
	w := s.Spawn("zbxshipper-no-such-sender", []string{"--input-file", "-"}, func(err error) {
		reported = append(reported, err)
	})
	require.NotNil(t, w)

	n, err := w.Write([]byte("h k v\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	require.NoError(t, w.Close())
	s.Wait()

	require.Len(t, reported, 1)
	var spawnErr *SpawnError
	require.True(t, errors.As(reported[0], &spawnErr))
	assert.Equal(t, "zbxshipper-no-such-sender", spawnErr.Binary)
	assert.Equal(t, []string{"--input-file", "-"}, spawnErr.Args)
	assert.True(t, errors.Is(reported[0], exec.ErrNotFound))
	assert.Contains(t, spawnErr.Error(), "zbxshipper-no-such-sender --input-file -")
}

func TestExecSpawnerNotFoundNilCallback(t *testing.T) {
	t.Parallel()

	s := NewExecSpawner(fixtures.NewTestLogger(t))
	w := s.Spawn("zbxshipper-no-such-sender", nil, nil)
	require.NotNil(t, w)
	require.NoError(t, w.Close())
}

func TestCappedBuffer(t *testing.T) {
	t.Parallel()
	var c cappedBuffer
	big := make([]byte, maxLoggedOutput+10)
	n, err := c.Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	n, err = c.Write([]byte("more"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Len(t, c.String(), maxLoggedOutput)
}
