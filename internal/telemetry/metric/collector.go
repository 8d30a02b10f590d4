package metric

import "github.com/prometheus/client_golang/prometheus"

// Stats is a point-in-time view of the keyspace and broker.
type Stats struct {
	Keys         int
	ExpiringKeys int
	Channels     int
	Subscribers  int
}

// StatsFunc returns current stats. It is called once per scrape.
type StatsFunc func() Stats

// Collector reports Stats as gauges at scrape time.
type Collector struct {
	stats StatsFunc

	keys         *prometheus.Desc
	expiringKeys *prometheus.Desc
	channels     *prometheus.Desc
	subscribers  *prometheus.Desc
}

// NewCollector creates a collector reading from stats.
func NewCollector(stats StatsFunc) *Collector {
	return &Collector{
		stats:        stats,
		keys:         prometheus.NewDesc(namespace+"_keyspace_keys", "Live keys in the keyspace.", nil, nil),
		expiringKeys: prometheus.NewDesc(namespace+"_keyspace_expiring_keys", "Keys carrying an expiry deadline.", nil, nil),
		channels:     prometheus.NewDesc(namespace+"_pubsub_channels", "Channels with at least one subscriber.", nil, nil),
		subscribers:  prometheus.NewDesc(namespace+"_pubsub_subscribers", "Registered subscriber endpoints.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.keys
	ch <- c.expiringKeys
	ch <- c.channels
	ch <- c.subscribers
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.keys, prometheus.GaugeValue, float64(s.Keys))
	ch <- prometheus.MustNewConstMetric(c.expiringKeys, prometheus.GaugeValue, float64(s.ExpiringKeys))
	ch <- prometheus.MustNewConstMetric(c.channels, prometheus.GaugeValue, float64(s.Channels))
	ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(s.Subscribers))
}
