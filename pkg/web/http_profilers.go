package web

import (
	"net/http"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strconv"
	"sync"
	"time"
)

const (
	defaultProfileDuration = 30 * time.Second
	maxProfileDuration     = 5 * time.Minute
)

// traceProfiler serialises profiling requests, only one may run at a time.
type traceProfiler struct {
	mutex sync.Mutex
}

// profileDuration reads the "seconds" query parameter.
func profileDuration(r *http.Request) time.Duration {
	s, err := strconv.Atoi(r.URL.Query().Get("seconds"))
	if err != nil || s <= 0 {
		return defaultProfileDuration
	}
	d := time.Duration(s) * time.Second
	if d > maxProfileDuration {
		return maxProfileDuration
	}
	return d
}

// sleep waits for d or until the client goes away.
func sleep(r *http.Request, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.Context().Done():
	}
}

func (tp *traceProfiler) Trace(w http.ResponseWriter, r *http.Request) {
	tp.mutex.Lock()
	defer tp.mutex.Unlock()
	if err := trace.Start(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer trace.Stop()
	sleep(r, profileDuration(r))
}

func (tp *traceProfiler) PProf(w http.ResponseWriter, r *http.Request) {
	tp.mutex.Lock()
	defer tp.mutex.Unlock()
	if err := pprof.StartCPUProfile(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer pprof.StopCPUProfile()
	sleep(r, profileDuration(r))
}

func (tp *traceProfiler) MemProf(w http.ResponseWriter, r *http.Request) {
	tp.mutex.Lock()
	defer tp.mutex.Unlock()
	runtime.GC()
	_ = pprof.Lookup("heap").WriteTo(w, 0)
}
