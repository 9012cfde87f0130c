// Package exporter publishes computed flow metrics as Prometheus gauges,
// either on a registry for scraping or as a node-exporter textfile.
package exporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

const namespace = "flowwatch"

// Report is the set of metrics published for one board.
type Report struct {
	Board          string
	WIP            []flow.StageWIP
	LeadTime       flow.Statistics
	Throughput     flow.ThroughputStatistics
	Predictability []flow.PredictabilityPoint
	GeneratedAt    time.Time
}

// Exporter owns a private registry with the flow gauges.
type Exporter struct {
	reg *prometheus.Registry

	wip               *prometheus.GaugeVec
	leadTime          *prometheus.GaugeVec
	leadTimeMean      *prometheus.GaugeVec
	tasks             *prometheus.GaugeVec
	throughputTotal   *prometheus.GaugeVec
	throughputAverage *prometheus.GaugeVec
	predictability    *prometheus.GaugeVec
	predictTrend      *prometheus.GaugeVec
	lastRun           *prometheus.GaugeVec
}

// New registers the flow gauges on a fresh registry.
func New() *Exporter {
	e := &Exporter{
		reg: prometheus.NewRegistry(),
		wip: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wip_tasks",
			Help:      "Tasks currently in a stage that entered it during the window",
		}, []string{"board", "stage"}),
		leadTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lead_time_days",
			Help:      "Nearest-rank lead time percentile in days",
		}, []string{"board", "percentile"}),
		leadTimeMean: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lead_time_mean_days",
			Help:      "Mean lead time in days",
		}, []string{"board"}),
		tasks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks",
			Help:      "Tasks with a positive lead time in the window",
		}, []string{"board"}),
		throughputTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_tasks",
			Help:      "Tasks completed in the window",
		}, []string{"board"}),
		throughputAverage: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "throughput_average_tasks",
			Help:      "Average completed tasks per interval",
		}, []string{"board"}),
		predictability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predictability_ratio",
			Help:      "P95/P50 lead time ratio of the latest month with data",
		}, []string{"board"}),
		predictTrend: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "predictability_trend",
			Help:      "Least-squares trend of the predictability ratio at the latest month",
		}, []string{"board"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics were computed",
		}, []string{"board"}),
	}
	e.reg.MustRegister(
		e.wip, e.leadTime, e.leadTimeMean, e.tasks,
		e.throughputTotal, e.throughputAverage,
		e.predictability, e.predictTrend, e.lastRun,
	)
	return e
}

// Registry exposes the registry, e.g. for promhttp.HandlerFor.
func (e *Exporter) Registry() *prometheus.Registry { return e.reg }

// Observe sets every gauge of r.Board from r. Previous stage and percentile
// series of the board are replaced.
func (e *Exporter) Observe(r Report) {
	board := prometheus.Labels{"board": r.Board}
	e.wip.DeletePartialMatch(board)
	e.leadTime.DeletePartialMatch(board)

	for _, w := range r.WIP {
		e.wip.WithLabelValues(r.Board, w.Stage.Name).Set(float64(w.Count))
	}
	for rank, v := range r.LeadTime.Percentiles {
		e.leadTime.WithLabelValues(r.Board, strconv.Itoa(rank)).Set(float64(v))
	}
	e.leadTimeMean.WithLabelValues(r.Board).Set(r.LeadTime.Mean)
	e.tasks.WithLabelValues(r.Board).Set(float64(r.LeadTime.TotalTasks))
	e.throughputTotal.WithLabelValues(r.Board).Set(float64(r.Throughput.Total))
	e.throughputAverage.WithLabelValues(r.Board).Set(r.Throughput.Average)

	if n := len(r.Predictability); n > 0 {
		latest := r.Predictability[n-1]
		e.predictability.WithLabelValues(r.Board).Set(latest.Ratio)
		e.predictTrend.WithLabelValues(r.Board).Set(latest.Trend)
	}

	at := r.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	e.lastRun.WithLabelValues(r.Board).Set(float64(at.Unix()))
}

// WriteText renders the registry in the Prometheus text exposition format.
func (e *Exporter) WriteText(w io.Writer) error {
	families, err := e.reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile writes the exposition to path for the node exporter textfile
// collector. The file is written next to path and renamed into place so the
// collector never reads a partial file.
func (e *Exporter) WriteTextfile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := e.WriteText(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
