// Package metrics 定义推荐引擎的 Prometheus 指标。
//
// 指标：
//   - songrec_queries_total{op,status}：查询次数（op: search / recommend / by_features）
//   - songrec_query_duration_seconds{op}：查询耗时
//   - songrec_candidates{stage}：各阶段候选数量（recall / filter / rerank）
//   - songrec_index_rows：当前索引行数
//   - songrec_index_loads_total{status}：索引加载次数
//
// *Metrics 为 nil 时所有方法都是空操作，便于在测试与库调用中省略。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 持有全部采集器。
type Metrics struct {
	queries    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	candidates *prometheus.HistogramVec
	indexRows  prometheus.Gauge
	loads      *prometheus.CounterVec
}

// New 创建采集器并注册到 reg；reg 为 nil 时只创建不注册。
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songrec",
			Name:      "queries_total",
			Help:      "Recommendation engine queries by operation and status.",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "songrec",
			Name:      "query_duration_seconds",
			Help:      "Query latency by operation.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
		candidates: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "songrec",
			Name:      "candidates",
			Help:      "Candidate count after each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"stage"}),
		indexRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "songrec",
			Name:      "index_rows",
			Help:      "Rows in the currently loaded feature index.",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "songrec",
			Name:      "index_loads_total",
			Help:      "Feature index loads by status.",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.queries, m.duration, m.candidates, m.indexRows, m.loads)
	}
	return m
}

// ObserveQuery 记录一次查询的状态与耗时。
func (m *Metrics) ObserveQuery(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.queries.WithLabelValues(op, status).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveCandidates 记录某阶段的候选数量。
func (m *Metrics) ObserveCandidates(stage string, n int) {
	if m == nil {
		return
	}
	m.candidates.WithLabelValues(stage).Observe(float64(n))
}

// IndexLoaded 记录索引加载结果。
func (m *Metrics) IndexLoaded(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.loads.WithLabelValues("error").Inc()
		return
	}
	m.loads.WithLabelValues("ok").Inc()
	m.indexRows.Set(float64(rows))
}
