package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	totalCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "soulwhisper_pipeline_total",
		Help: "Processed audio files",
	}, []string{"result"})

	duration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "soulwhisper_pipeline_duration_seconds",
		Help:    "Audio processing duration",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320},
	})
)

func observe(start time.Time, err error) {
	duration.Observe(time.Since(start).Seconds())
	if err != nil {
		totalCount.WithLabelValues("fail").Inc()
		return
	}
	totalCount.WithLabelValues("ok").Inc()
}
