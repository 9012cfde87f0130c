package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/flowwatch/internal/flow"
)

func sampleReport() Report {
	return Report{
		Board: "42",
		WIP: []flow.StageWIP{
			{Stage: flow.Stage{Index: 0, Name: "Todo"}, Count: 1},
			{Stage: flow.Stage{Index: 1, Name: "Doing"}, Count: 2},
		},
		LeadTime: flow.Statistics{
			TotalTasks:  4,
			Mean:        4.5,
			Percentiles: map[int]int{50: 2, 85: 10},
		},
		Throughput:  flow.ThroughputStatistics{Total: 9, Average: 3},
		GeneratedAt: time.Unix(1700000000, 0),
		Predictability: []flow.PredictabilityPoint{
			{Month: "2024-01", Ratio: 2, Trend: 2},
			{Month: "2024-02", Ratio: 1, Trend: 1.1},
		},
	}
}

func getGaugeValue(t *testing.T, e *Exporter, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := e.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetGauge().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func TestObserve(t *testing.T) {
	e := New()
	e.Observe(sampleReport())

	assert.Equal(t, 2.0, testutil.ToFloat64(e.wip.WithLabelValues("42", "Doing")))
	assert.Equal(t, 10.0, getGaugeValue(t, e, "flowwatch_lead_time_days", map[string]string{"percentile": "85"}))
	assert.Equal(t, 4.5, testutil.ToFloat64(e.leadTimeMean.WithLabelValues("42")))
	assert.Equal(t, 4.0, testutil.ToFloat64(e.tasks.WithLabelValues("42")))
	assert.Equal(t, 9.0, testutil.ToFloat64(e.throughputTotal.WithLabelValues("42")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.predictability.WithLabelValues("42")), "latest month wins")
	assert.Equal(t, 1.1, testutil.ToFloat64(e.predictTrend.WithLabelValues("42")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(e.lastRun.WithLabelValues("42")))
}

func TestObserve_ReplacesStages(t *testing.T) {
	e := New()
	e.Observe(sampleReport())

	r := sampleReport()
	r.WIP = r.WIP[:1]
	e.Observe(r)

	assert.Equal(t, 1, testutil.CollectAndCount(e.wip))

	other := sampleReport()
	other.Board = "7"
	e.Observe(other)
	assert.Equal(t, 3, testutil.CollectAndCount(e.wip), "boards keep separate series")
}

func TestWriteText(t *testing.T) {
	e := New()
	e.Observe(sampleReport())

	var buf bytes.Buffer
	require.NoError(t, e.WriteText(&buf))
	out := buf.String()

	assert.Contains(t, out, "# TYPE flowwatch_wip_tasks gauge")
	assert.Contains(t, out, `flowwatch_wip_tasks{board="42",stage="Doing"} 2`)
	assert.Contains(t, out, `flowwatch_lead_time_days{board="42",percentile="50"} 2`)
	assert.Contains(t, out, `flowwatch_throughput_tasks{board="42"} 9`)
	assert.Equal(t, 1, strings.Count(out, "# HELP flowwatch_predictability_ratio "))
}

func TestWriteTextfile(t *testing.T) {
	e := New()
	e.Observe(sampleReport())

	dir := t.TempDir()
	path := filepath.Join(dir, "flowwatch.prom")
	require.NoError(t, e.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "flowwatch_throughput_average_tasks")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is renamed away")

	assert.Error(t, e.WriteTextfile(filepath.Join(dir, "missing", "x.prom")))
}
