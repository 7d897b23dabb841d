package web

import (
	"bytes"
	"errors"
	"io/ioutil"
	"mime"
	"net/http"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/atlassian/zbxshipper"
	"github.com/atlassian/zbxshipper/pkg/decode"
	"github.com/atlassian/zbxshipper/pkg/util"
)

// IngestStats is a snapshot of the ingest counters since start.
type IngestStats struct {
	RequestSuccess           uint64 `json:"request_success"`
	RequestFailureRead       uint64 `json:"request_failure_read"`
	RequestFailureTooLarge   uint64 `json:"request_failure_too_large"`
	RequestFailureDecompress uint64 `json:"request_failure_decompress"`
	RequestFailureEncoding   uint64 `json:"request_failure_encoding"`
	RequestFailureDecode     uint64 `json:"request_failure_decode"`
	RequestThrottled         uint64 `json:"request_throttled"`
	RequestAborted           uint64 `json:"request_aborted"`
	SpawnFailures            uint64 `json:"spawn_failures"`
}

type ingestHandler struct {
	requestSuccess           uint64 // atomic
	requestFailureRead       uint64 // atomic
	requestFailureTooLarge   uint64 // atomic
	requestFailureDecompress uint64 // atomic
	requestFailureEncoding   uint64 // atomic
	requestFailureDecode     uint64 // atomic
	requestThrottled         uint64 // atomic
	requestAborted           uint64 // atomic
	spawnFailures            uint64 // atomic

	logger      logrus.FieldLogger
	shipper     zbxshipper.Shipper
	limiter     *rate.Limiter // nil when unlimited
	sends       util.Semaphore
	maxBodySize int64
}

func newIngestHandler(logger logrus.FieldLogger, shipper zbxshipper.Shipper, limiter *rate.Limiter, maxConcurrentSends int, maxBodySize int64) *ingestHandler {
	return &ingestHandler{
		logger:      logger,
		shipper:     shipper,
		limiter:     limiter,
		sends:       util.NewSemaphore(maxConcurrentSends),
		maxBodySize: maxBodySize,
	}
}

// Stats returns the current counters.
func (ih *ingestHandler) Stats() IngestStats {
	return IngestStats{
		RequestSuccess:           atomic.LoadUint64(&ih.requestSuccess),
		RequestFailureRead:       atomic.LoadUint64(&ih.requestFailureRead),
		RequestFailureTooLarge:   atomic.LoadUint64(&ih.requestFailureTooLarge),
		RequestFailureDecompress: atomic.LoadUint64(&ih.requestFailureDecompress),
		RequestFailureEncoding:   atomic.LoadUint64(&ih.requestFailureEncoding),
		RequestFailureDecode:     atomic.LoadUint64(&ih.requestFailureDecode),
		RequestThrottled:         atomic.LoadUint64(&ih.requestThrottled),
		RequestAborted:           atomic.LoadUint64(&ih.requestAborted),
		SpawnFailures:            atomic.LoadUint64(&ih.spawnFailures),
	}
}

func (ih *ingestHandler) readBody(w http.ResponseWriter, req *http.Request) ([]byte, int) {
	body := req.Body
	if ih.maxBodySize > 0 {
		body = http.MaxBytesReader(w, body, ih.maxBodySize)
	}
	b, err := ioutil.ReadAll(body)
	_ = req.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			atomic.AddUint64(&ih.requestFailureTooLarge, 1)
			ih.logger.WithError(err).Info("body too large")
			return nil, http.StatusRequestEntityTooLarge
		}
		atomic.AddUint64(&ih.requestFailureRead, 1)
		ih.logger.WithError(err).Info("failed reading body")
		return nil, http.StatusBadRequest
	}

	// the size limit applies to the decoded body as well
	b, err = decompress(req.Header.Get("Content-Encoding"), b, ih.maxBodySize)
	if err != nil {
		if errors.Is(err, ErrDecompressedTooLarge) {
			atomic.AddUint64(&ih.requestFailureTooLarge, 1)
			ih.logger.WithError(err).Info("decompressed body too large")
			return nil, http.StatusRequestEntityTooLarge
		}
		if _, ok := err.(unsupportedEncodingError); ok {
			atomic.AddUint64(&ih.requestFailureEncoding, 1)
			ih.logger.WithError(err).Info("invalid encoding")
		} else {
			atomic.AddUint64(&ih.requestFailureDecompress, 1)
			ih.logger.WithError(err).Info("failed decompressing body")
		}
		return nil, http.StatusBadRequest
	}

	return b, 0
}

// formatFromContentType maps the request Content-Type to a decode format, JSON unless it names YAML.
func formatFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return decode.FormatJSON
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return decode.FormatYAML
	default:
		return decode.FormatJSON
	}
}

// MetricHandler decodes the body and ships it. The response only says the document was handed to a sender
// process, not that the server accepted the items.
func (ih *ingestHandler) MetricHandler(w http.ResponseWriter, req *http.Request) {
	if ih.limiter != nil && !ih.limiter.Allow() {
		atomic.AddUint64(&ih.requestThrottled, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	b, errCode := ih.readBody(w, req)
	if errCode != 0 {
		w.WriteHeader(errCode)
		return
	}

	data, err := decode.Decode(formatFromContentType(req.Header.Get("Content-Type")), bytes.NewReader(b))
	if err != nil {
		atomic.AddUint64(&ih.requestFailureDecode, 1)
		ih.logger.WithError(err).Info("failed to decode")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(err.Error()))
		return
	}

	if !ih.sends.Acquire(req.Context()) {
		atomic.AddUint64(&ih.requestAborted, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	defer ih.sends.Release()

	ih.shipper.Send(data, ih.spawnFailed)
	atomic.AddUint64(&ih.requestSuccess, 1)
	w.WriteHeader(http.StatusAccepted)
}

func (ih *ingestHandler) spawnFailed(err error) {
	atomic.AddUint64(&ih.spawnFailures, 1)
	ih.logger.WithError(err).Error("failed to start sender")
}

// StatsHandler serves the counters as JSON.
func (ih *ingestHandler) StatsHandler(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = jsoniter.NewEncoder(w).Encode(ih.Stats())
}
