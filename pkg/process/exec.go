package process

import (
	"bytes"
	"io"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/pkg/util"
)

// maxLoggedOutput caps how much of the child's stdout/stderr ends up in a log line.
const maxLoggedOutput = 4096

// ExecSpawner runs executables with os/exec. Children are reaped in the background once their input is closed.
type ExecSpawner struct {
	logger logrus.FieldLogger
	wg     sync.WaitGroup
}

// NewExecSpawner returns an ExecSpawner that logs child exit status to logger.
func NewExecSpawner(logger logrus.FieldLogger) *ExecSpawner {
	return &ExecSpawner{
		logger: logger,
	}
}

// Spawn implements Spawner.
func (s *ExecSpawner) Spawn(name string, args []string, onError zbxshipper.ErrorCallback) io.WriteCloser {
	cmd := exec.Command(name, args...)
	stdout := &cappedBuffer{}
	stderr := &cappedBuffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err == nil {
		err = cmd.Start()
		if err != nil {
			_ = stdin.Close()
		}
	}
	if err != nil {
		if onError != nil {
			onError(&SpawnError{Binary: name, Args: args, Err: err})
		}
		return util.DiscardCloser
	}

	s.wg.Add(1)
	return &childInput{
		WriteCloser: stdin,
		reap: func() {
			defer s.wg.Done()
			s.reap(cmd, stdout, stderr)
		},
	}
}

// Wait blocks until every child whose input has been closed has exited.
func (s *ExecSpawner) Wait() {
	s.wg.Wait()
}

func (s *ExecSpawner) reap(cmd *exec.Cmd, stdout, stderr *cappedBuffer) {
	logger := s.logger.WithFields(logrus.Fields{
		"bin": cmd.Path,
		"pid": cmd.Process.Pid,
	})
	err := cmd.Wait()
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"stdout": stdout.String(),
			"stderr": stderr.String(),
		}).Warn("sender exited with error")
		return
	}
	logger.WithField("stdout", stdout.String()).Debug("sender finished")
}

// childInput closes the pipe then reaps the child, once.
type childInput struct {
	io.WriteCloser
	once sync.Once
	reap func()
}

func (c *childInput) Close() error {
	err := io.ErrClosedPipe
	c.once.Do(func() {
		err = c.WriteCloser.Close()
		go c.reap()
	})
	return err
}

// cappedBuffer keeps the first maxLoggedOutput bytes written to it and drops the rest.
type cappedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := maxLoggedOutput - c.buf.Len(); room > 0 {
		if len(p) > room {
			c.buf.Write(p[:room])
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
