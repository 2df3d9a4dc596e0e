package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	hubClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "keijiban_hub_clients",
		Help: "Number of connected hub clients",
	})

	hubFramesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keijiban_hub_frames_total",
			Help: "Total frames fanned out to hub clients by event",
		},
		[]string{"event"},
	)

	hubDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "keijiban_hub_dropped_frames_total",
		Help: "Total frames dropped due to a full client queue",
	})

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keijiban_notice_broadcasts_total",
			Help: "Active-notice broadcasts by result",
		},
		[]string{"result"}, // ok|store_error|publish_error
	)
)

func init() {
	prometheus.MustRegister(
		hubClients,
		hubFramesTotal,
		hubDroppedTotal,
		broadcastsTotal,
	)
}

func AddHubClients(delta float64) { hubClients.Add(delta) }
func IncHubFrame(event string)     { hubFramesTotal.WithLabelValues(event).Inc() }
func IncHubDropped()               { hubDroppedTotal.Inc() }
func IncBroadcast(result string)   { broadcastsTotal.WithLabelValues(result).Inc() }

// Handler 暴露 /metrics
func Handler() http.Handler { return promhttp.Handler() }
