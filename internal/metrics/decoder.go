package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DecoderStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_decoder_start_total",
		Help: "Decoder process starts by result",
	}, []string{"result"})

	DecoderExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_decoder_exit_total",
		Help: "Decoder process exits by reason (eos, error, stopped, flow)",
	}, []string{"reason"})

	FramesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playbin_frames_decoded_total",
		Help: "Frames read from decoder processes and handed to the frame callback",
	})

	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "playbin_probe_duration_seconds",
		Help:    "Time spent negotiating source capabilities",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
	}, []string{"result"})

	SeekTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playbin_seek_total",
		Help: "Seeks issued against pipelines by result",
	}, []string{"result"})

	DecoderStallTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playbin_decoder_stall_total",
		Help: "Watchdog detections of a playing decoder that stopped producing frames",
	})
)

// IncDecoderStart records a decoder process start attempt.
func IncDecoderStart(result string) {
	DecoderStartTotal.WithLabelValues(result).Inc()
}

// IncDecoderExit records why a decoder process ended.
func IncDecoderExit(reason string) {
	DecoderExitTotal.WithLabelValues(reason).Inc()
}

// IncSeek records the outcome of a seek.
func IncSeek(result string) {
	SeekTotal.WithLabelValues(result).Inc()
}
