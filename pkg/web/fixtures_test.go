package web_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/pkg/healthcheck"
)

type capturingShipper struct {
	mu       sync.Mutex
	sent     []zbxshipper.Value
	spawnErr error
	healthy  healthcheck.HealthyStatus

	// started, when set, is signalled as Send begins. Send then blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (cs *capturingShipper) Send(data zbxshipper.Value, onError zbxshipper.ErrorCallback) {
	cs.mu.Lock()
	cs.sent = append(cs.sent, data)
	spawnErr := cs.spawnErr
	cs.mu.Unlock()
	if cs.started != nil {
		cs.started <- struct{}{}
		<-cs.release
	}
	if spawnErr != nil && onError != nil {
		onError(spawnErr)
	}
}

func (cs *capturingShipper) DeepChecks() []healthcheck.HealthcheckFunc {
	return []healthcheck.HealthcheckFunc{func() (string, healthcheck.HealthyStatus) {
		return "sender executable", cs.healthy
	}}
}

// Lines returns everything sent so far as sender input lines.
func (cs *capturingShipper) Lines() string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	var s string
	for _, v := range cs.sent {
		for _, m := range zbxshipper.Flatten("-", v) {
			s += m.String()
		}
	}
	return s
}

func (cs *capturingShipper) Sends() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.sent)
}

func testContext(t *testing.T) (context.Context, func()) {
	ctxTest, completeTest := context.WithTimeout(context.Background(), 10*time.Second)
	go func() {
		<-ctxTest.Done()
		if ctxTest.Err() == context.DeadlineExceeded {
			t.Error("test timed out")
		}
	}()
	return ctxTest, completeTest
}
