package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// JobCounter reports job counts keyed by status. The pipeline tracker
// implements this; the collector stays decoupled from its package.
type JobCounter interface {
	CountByStatus() map[string]int
}

// JobStatsCollector collects job-tracker statistics as Prometheus metrics.
// It implements prometheus.Collector and reads counts directly from the
// tracker on each scrape, ensuring up-to-date values.
type JobStatsCollector struct {
	jobs JobCounter

	jobsByStatus *prometheus.Desc
}

// NewJobStatsCollector creates a new collector over the given job counter.
func NewJobStatsCollector(jobs JobCounter) *JobStatsCollector {
	return &JobStatsCollector{
		jobs: jobs,
		jobsByStatus: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "pipeline", "jobs"),
			"Processing jobs by status",
			[]string{"status"},
			nil,
		),
	}
}

// Describe sends all metric descriptors to the channel.
func (c *JobStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobsByStatus
}

// Collect gathers current job counts and sends them as metrics.
func (c *JobStatsCollector) Collect(ch chan<- prometheus.Metric) {
	if c.jobs == nil {
		return
	}
	for status, count := range c.jobs.CountByStatus() {
		ch <- prometheus.MustNewConstMetric(
			c.jobsByStatus,
			prometheus.GaugeValue,
			float64(count),
			status,
		)
	}
}

// RegisterJobStatsCollector registers the collector with the default
// Prometheus registry. Double registration is tolerated.
func RegisterJobStatsCollector(jobs JobCounter) (*JobStatsCollector, error) {
	collector := NewJobStatsCollector(jobs)
	if err := prometheus.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return nil, err
		}
	}
	return collector, nil
}
