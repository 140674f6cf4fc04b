package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom holds the live gauges for one daemon, shared by every run and labeled
// by run id. A dedicated registry keeps daemons and tests from colliding on
// the global default registry.
type Prom struct {
	registry *prometheus.Registry

	queueOccupancy *prometheus.GaugeVec
	bucketCredit   *prometheus.GaugeVec
	packetsSent    *prometheus.GaugeVec
	packetsDropped *prometheus.GaugeVec
	bytesTotal     *prometheus.GaugeVec
	throughput     *prometheus.GaugeVec
}

// NewProm creates and registers the gauge set
func NewProm() *Prom {
	p := &Prom{
		registry: prometheus.NewRegistry(),
		queueOccupancy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shaper_queue_occupancy",
				Help: "Packets currently queued on the shaped link",
			},
			[]string{"runId"},
		),
		bucketCredit: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shaper_bucket_credit_bytes",
				Help: "Current token bucket credit in bytes",
			},
			[]string{"runId"},
		),
		packetsSent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shaper_flow_packets_sent_total",
				Help: "Packets generated per flow",
			},
			[]string{"runId", "flowId"},
		),
		packetsDropped: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shaper_flow_packets_dropped_total",
				Help: "Packets tail-dropped per flow",
			},
			[]string{"runId", "flowId"},
		),
		bytesTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shaper_flow_bytes_transmitted_total",
				Help: "Bytes transmitted per flow",
			},
			[]string{"runId", "flowId"},
		),
		throughput: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "shaper_flow_throughput_bytes_per_sec",
				Help: "Per-flow throughput since run start",
			},
			[]string{"runId", "flowId"},
		),
	}

	p.registry.MustRegister(
		p.queueOccupancy, p.bucketCredit,
		p.packetsSent, p.packetsDropped, p.bytesTotal, p.throughput,
	)
	return p
}

// Observe pushes one collector sample into the gauges
func (p *Prom) Observe(runID string, s Sample, bucketCredit uint64) {
	p.queueOccupancy.WithLabelValues(runID).Set(float64(s.QueueOccupancy))
	p.bucketCredit.WithLabelValues(runID).Set(float64(bucketCredit))

	for _, fs := range s.Flows {
		flowID := strconv.Itoa(fs.FlowID)
		p.packetsSent.WithLabelValues(runID, flowID).Set(float64(fs.PacketsSent))
		p.packetsDropped.WithLabelValues(runID, flowID).Set(float64(fs.PacketsDropped))
		p.bytesTotal.WithLabelValues(runID, flowID).Set(float64(fs.BytesTransmitted))
		p.throughput.WithLabelValues(runID, flowID).Set(fs.ThroughputBps)
	}
}

// Handler serves the registry for scraping
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests
func (p *Prom) Registry() *prometheus.Registry {
	return p.registry
}
