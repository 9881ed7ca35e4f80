package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "transport",
			Name:      "frames_read_total",
			Help:      "Frames read from the generation service stream.",
		},
	)
	framesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "transport",
			Name:      "frames_written_total",
			Help:      "Frames written to the generation service stream.",
		},
	)
	bytesRead = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "transport",
			Name:      "payload_bytes_read_total",
			Help:      "Compressed payload bytes read from the stream.",
		},
	)
	bytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "transport",
			Name:      "payload_bytes_written_total",
			Help:      "Compressed payload bytes written to the stream.",
		},
	)
	decodeErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "protocol",
			Name:      "decode_errors_total",
			Help:      "Frames dropped because their payload failed to decode.",
		},
	)
	unknownRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "client",
			Name:      "unknown_request_drops_total",
			Help:      "Response packets dropped for unknown or retired request ids.",
		},
	)
	pendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "terralink",
			Subsystem: "client",
			Name:      "pending_requests",
			Help:      "Requests currently awaiting their terminal packet.",
		},
	)
	chunksDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "terralink",
			Subsystem: "client",
			Name:      "chunks_delivered_total",
			Help:      "Voxel chunks delivered to streaming request handles.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			framesRead, framesWritten, bytesRead, bytesWritten,
			decodeErrors, unknownRequests, pendingRequests, chunksDelivered,
		)
	})
}

func RecordFrameRead(payloadBytes int) {
	RegisterMetrics()
	framesRead.Inc()
	bytesRead.Add(float64(payloadBytes))
}

func RecordFrameWritten(payloadBytes int) {
	RegisterMetrics()
	framesWritten.Inc()
	bytesWritten.Add(float64(payloadBytes))
}

func RecordDecodeError() {
	RegisterMetrics()
	decodeErrors.Inc()
}

func RecordUnknownRequest() {
	RegisterMetrics()
	unknownRequests.Inc()
}

func SetPendingRequests(n int) {
	RegisterMetrics()
	pendingRequests.Set(float64(n))
}

func RecordChunkDelivered() {
	RegisterMetrics()
	chunksDelivered.Inc()
}
