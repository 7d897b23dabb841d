package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/pkg/healthcheck"
	"github.com/atlassian/zbxshipper/pkg/util"
)

const (
	// DefaultMaxBodySize is the default limit of an ingest request body, before decompression.
	DefaultMaxBodySize = 10 * 1024 * 1024
	// DefaultMaxConcurrentSends is the default number of ingest requests writing to a sender at once.
	DefaultMaxConcurrentSends = 16
	// shutdownTimeout is how long in-flight requests get to finish on shutdown.
	shutdownTimeout = 5 * time.Second
)

type HttpServer struct {
	logger  logrus.FieldLogger
	address string
	Router  *mux.Router // should be private, but tests drive it with httptest.
	ingest  *ingestHandler
}

type route struct {
	path    string
	handler http.HandlerFunc
	method  string
	name    string
}

var done = struct{}{}

// NewHttpServerFromViper builds the server from the "http" section. The address defaults to the top level
// http-addr parameter.
func NewHttpServerFromViper(v *viper.Viper, logger logrus.FieldLogger, shipper zbxshipper.Shipper) (*HttpServer, error) {
	vSub := util.GetSubViper(v, "http")
	vSub.SetDefault("address", v.GetString(zbxshipper.ParamHTTPAddr))
	vSub.SetDefault("enable-prof", false)
	vSub.SetDefault("enable-ingestion", true)
	vSub.SetDefault("enable-healthcheck", true)
	vSub.SetDefault("requests-per-second", 0.0)
	vSub.SetDefault("burst", 0)
	vSub.SetDefault("max-concurrent-sends", DefaultMaxConcurrentSends)
	vSub.SetDefault("max-body-size", DefaultMaxBodySize)

	var limiter *rate.Limiter
	if rps := vSub.GetFloat64("requests-per-second"); rps > 0 {
		burst := vSub.GetInt("burst")
		if burst <= 0 {
			burst = int(rps) + 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return NewHttpServer(
		logger,
		shipper,
		vSub.GetString("address"),
		vSub.GetBool("enable-prof"),
		vSub.GetBool("enable-ingestion"),
		vSub.GetBool("enable-healthcheck"),
		limiter,
		vSub.GetInt("max-concurrent-sends"),
		vSub.GetInt64("max-body-size"),
	)
}

// NewHttpServer constructs the web server. limiter may be nil to accept every request.
func NewHttpServer(
	logger logrus.FieldLogger,
	shipper zbxshipper.Shipper,
	address string,
	enableProf,
	enableIngestion,
	enableHealthcheck bool,
	limiter *rate.Limiter,
	maxConcurrentSends int,
	maxBodySize int64,
) (*HttpServer, error) {
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if enableIngestion && shipper == nil {
		return nil, fmt.Errorf("shipper is required for ingestion")
	}

	var routes []route

	server := &HttpServer{
		logger:  logger,
		address: address,
	}

	if enableProf {
		profiler := &traceProfiler{}
		routes = append(routes,
			route{path: "/debug/pprof/heap", handler: profiler.MemProf, method: "POST", name: "profmem_post"},
			route{path: "/debug/pprof/profile", handler: profiler.PProf, method: "POST", name: "profpprof_post"},
			route{path: "/debug/pprof/trace", handler: profiler.Trace, method: "POST", name: "proftrace_post"},
		)
	}

	if enableIngestion {
		server.ingest = newIngestHandler(logger, shipper, limiter, maxConcurrentSends, maxBodySize)
		routes = append(routes,
			route{path: "/v1/metrics", handler: server.ingest.MetricHandler, method: "POST", name: "metrics_post"},
			route{path: "/v1/stats", handler: server.ingest.StatsHandler, method: "GET", name: "stats_get"},
		)
	}

	if enableHealthcheck {
		hc := &healthChecker{logger: logger}
		hc.healthChecks, hc.deepChecks = healthcheck.MaybeAppendHealthChecks(hc.healthChecks, hc.deepChecks, shipper)
		hc.healthChecks = append(hc.healthChecks, server.listening)
		routes = append(routes,
			route{path: "/healthcheck", handler: hc.healthCheck, method: "GET", name: "healthcheck_get"},
			route{path: "/deepcheck", handler: hc.deepCheck, method: "GET", name: "deepcheck_get"},
		)
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("must enable at least one of prof, ingestion, or healthcheck")
	}

	router, err := createRoutes(routes)
	if err != nil {
		return nil, err
	}
	router.NotFoundHandler = server.logRequest(http.HandlerFunc(server.notFound))
	router.Use(server.logRequest)
	server.Router = router

	logger.WithFields(logrus.Fields{
		"address":            address,
		"enable-pprof":       enableProf,
		"enable-ingestion":   enableIngestion,
		"enable-healthcheck": enableHealthcheck,
		"rate-limited":       limiter != nil,
	}).Info("Created server")

	return server, nil
}

func (hs *HttpServer) listening() (string, healthcheck.HealthyStatus) {
	return "listening on " + hs.address, healthcheck.Healthy
}

// Stats returns the ingest counters, zero when ingestion is disabled.
func (hs *HttpServer) Stats() IngestStats {
	if hs.ingest == nil {
		return IngestStats{}
	}
	return hs.ingest.Stats()
}

func (hs *HttpServer) notFound(w http.ResponseWriter, req *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("not found"))
}

func createRoutes(routes []route) (*mux.Router, error) {
	router := mux.NewRouter()

	for _, route := range routes {
		r := router.HandleFunc(route.path, route.handler).Methods(route.method).Name(route.name)
		if err := r.GetError(); err != nil {
			return nil, fmt.Errorf("error creating route %s: %v", route.name, err)
		}
	}

	return router, nil
}

func (hs *HttpServer) logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		logFields := logrus.Fields{
			"srcip": strings.Split(req.RemoteAddr, ":")[0],
			"path":  req.URL.Path,
		}
		if route := mux.CurrentRoute(req); route == nil {
			logFields["method"] = req.Method
		} else {
			logFields["route"] = route.GetName()
		}
		if source := req.Header.Get("X-Forwarded-For"); source != "" {
			logFields["forwarded_for"] = source
		}

		start := time.Now()
		handler.ServeHTTP(w, req)
		dur := time.Since(start)

		logFields["duration"] = float64(dur) / float64(time.Millisecond)
		hs.logger.WithFields(logFields).Debug("request")
	})
}

// Run serves until ctx is done, then shuts down gracefully.
func (hs *HttpServer) Run(ctx context.Context) {
	server := &http.Server{
		Addr:    hs.address,
		Handler: hs.Router,
	}

	chStopped := make(chan struct{}, 1)
	go hs.waitAndStop(ctx, server, chStopped)

	hs.logger.WithField("address", server.Addr).Info("listening")

	err := server.ListenAndServe()
	if err != http.ErrServerClosed {
		hs.logger.WithError(err).Error("web server failed")
		return
	}

	// Wait for graceful shutdown of existing connections
	select {
	case <-chStopped:
		// happy
	case <-time.After(shutdownTimeout + time.Second):
		hs.logger.Info("timeout waiting for webserver to stop")
	}
}

// waitAndStop will gracefully shut down the Server when the Context passed is cancelled. It signals
// on chStopped when it is done. There is no guarantee that it will actually signal, if the server
// does not shutdown.
func (hs *HttpServer) waitAndStop(ctx context.Context, server *http.Server, chStopped chan<- struct{}) {
	<-ctx.Done()

	hs.logger.Info("shutting down web server")
	timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(timeoutCtx)
	if err != nil {
		hs.logger.WithError(err).Warn("failed to stop web server")
	}
	chStopped <- done
}
