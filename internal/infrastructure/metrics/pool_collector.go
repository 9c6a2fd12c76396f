package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"spareflow/internal/infrastructure/storage/postgres"
)

// PoolStatsSource is satisfied by *postgres.Pool.
type PoolStatsSource interface {
	Stats() postgres.PoolStats
}

// PoolCollector reports connection pool gauges at scrape time.
type PoolCollector struct {
	source PoolStatsSource

	total    *prometheus.Desc
	idle     *prometheus.Desc
	acquired *prometheus.Desc
	max      *prometheus.Desc
}

// NewPoolCollector creates a collector; register it with Registry.MustRegister.
func NewPoolCollector(source PoolStatsSource) *PoolCollector {
	return &PoolCollector{
		source:   source,
		total:    prometheus.NewDesc(namespace+"_db_pool_total_conns", "Open connections.", nil, nil),
		idle:     prometheus.NewDesc(namespace+"_db_pool_idle_conns", "Idle connections.", nil, nil),
		acquired: prometheus.NewDesc(namespace+"_db_pool_acquired_conns", "Connections in use.", nil, nil),
		max:      prometheus.NewDesc(namespace+"_db_pool_max_conns", "Pool size limit.", nil, nil),
	}
}

func (c *PoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.idle
	ch <- c.acquired
	ch <- c.max
}

func (c *PoolCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(s.IdleConns))
	ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(s.AcquiredConns))
	ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(s.MaxConns))
}
