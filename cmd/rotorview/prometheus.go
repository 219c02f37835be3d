package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotornet/rotorsim/simulator"
)

var (
	// Prometheus metrics (gauges)
	promMetrics = struct {
		virtualTimeUs  prometheus.Gauge
		totalFlows     prometheus.Gauge
		completedFlows prometheus.Gauge
		droppedPackets prometheus.Gauge
		deliveredBytes prometheus.Gauge
		queuedPackets  prometheus.Gauge
		throughput     prometheus.Gauge
	}{
		virtualTimeUs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_virtual_time_us",
			Help: "Simulated virtual time in microseconds",
		}),
		totalFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_total_flows",
			Help: "Number of flows registered with the simulator",
		}),
		completedFlows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_completed_flows",
			Help: "Number of flows whose packets have all arrived",
		}),
		droppedPackets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_dropped_packets",
			Help: "Packets dropped at VOQ admission",
		}),
		deliveredBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_delivered_bytes",
			Help: "Bytes delivered to final destinations",
		}),
		queuedPackets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_queued_packets",
			Help: "Packets currently sitting in VOQs across all racks",
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rotorsim_throughput_gbps",
			Help: "Delivered throughput in Gb/s over elapsed virtual time",
		}),
	}
)

func initPrometheusMetrics() {
	prometheus.MustRegister(
		promMetrics.virtualTimeUs,
		promMetrics.totalFlows,
		promMetrics.completedFlows,
		promMetrics.droppedPackets,
		promMetrics.deliveredBytes,
		promMetrics.queuedPackets,
		promMetrics.throughput,
	)
}

func updatePrometheusMetrics(p *simulator.Progress) {
	promMetrics.virtualTimeUs.Set(p.VirtualTimeUs)
	promMetrics.totalFlows.Set(float64(p.TotalFlows))
	promMetrics.completedFlows.Set(float64(p.CompletedFlows))
	promMetrics.droppedPackets.Set(float64(p.DroppedPackets))
	promMetrics.deliveredBytes.Set(float64(p.DeliveredBytes))
	promMetrics.queuedPackets.Set(float64(p.QueuedPackets))
	promMetrics.throughput.Set(p.ThroughputGbps)
}
