package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	ConnectedClients prometheus.Gauge
	ActiveBuses      prometheus.Gauge

	Registrations     *prometheus.CounterVec // role label: bus|customer
	RegistrationFails prometheus.Counter

	LocationsAccepted prometheus.Counter
	LocationsDropped  *prometheus.CounterVec // reason label: role|rate_limited|invalid|stale
	StatusChanges     prometheus.Counter

	BroadcastFanout  prometheus.Histogram
	MessagesDropped  prometheus.Counter // outbound messages lost to full client buffers
	NameLogWriteErrs prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	RateLimitWindow prometheus.Gauge // seconds
}

func NewCollector(minSendInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connected_clients",
			Help: "Number of live websocket connections.",
		}),
		ActiveBuses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_buses",
			Help: "Number of buses with an accepted location.",
		}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_registrations_total",
			Help: "Total accepted role registrations.",
		}, []string{"role"}),
		RegistrationFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_registration_failures_total",
			Help: "Total rejected role registrations.",
		}),
		LocationsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_locations_accepted_total",
			Help: "Total accepted location updates.",
		}),
		LocationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_locations_dropped_total",
			Help: "Total silently dropped location updates.",
		}, []string{"reason"}),
		StatusChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_status_changes_total",
			Help: "Total accepted bus status changes.",
		}),
		BroadcastFanout: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_broadcast_fanout",
			Help:    "Recipients per broadcast.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		MessagesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_outbound_dropped_total",
			Help: "Outbound messages dropped because a client buffer was full.",
		}),
		NameLogWriteErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_namelog_write_errors_total",
			Help: "Total name log write failures.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_nats_published_total",
			Help: "Total NATS mirror messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_nats_publish_errors_total",
			Help: "Total NATS mirror publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_nats_connected",
			Help: "1 if the NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS mirror message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RateLimitWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_min_send_interval_seconds",
			Help: "Minimum accepted interval between location updates per bus.",
		}),
	}

	reg.MustRegister(
		c.ConnectedClients, c.ActiveBuses,
		c.Registrations, c.RegistrationFails,
		c.LocationsAccepted, c.LocationsDropped, c.StatusChanges,
		c.BroadcastFanout, c.MessagesDropped, c.NameLogWriteErrs,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.RateLimitWindow,
	)

	c.RateLimitWindow.Set(minSendInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}
