// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// #nosec G404
package metrics

import (
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func TestNoopMetrics(t *testing.T) {
	metrics = noop{}

	server := httptest.NewServer(HTTPHandler())
	t.Cleanup(server.Close)

	Counter("noop_count").Add(1)
	Histogram("noop_hist", nil).Observe(3)
	HistogramVec("noop_hist_vec", []string{"result"}, nil).ObserveWithLabels(1, map[string]string{"nonsense": "ok"})
	CounterVec("noop_count_vec", []string{"result"}).AddWithLabel(1, map[string]string{"nonsense": "ok"})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLazyLoading(t *testing.T) {
	metrics = noop{}

	for _, a := range []any{
		Counter("noopCounter"),
		CounterVec("noopCounter", nil),
		Histogram("noopHist", nil),
		HistogramVec("noopHist", nil, nil),
	} {
		require.IsType(t, noop{}, a)
	}

	counterVec := LazyLoadCounterVec("lazyCounterVec", nil)
	histogram := LazyLoadHistogram("lazyHistogram", nil)
	histogramVec := LazyLoadHistogramVec("lazyHistogramVec", nil, nil)

	// bound on first use, so the backend switch below is picked up
	InitializePrometheusMetrics()

	require.IsType(t, &promCountVecMeter{}, counterVec())
	require.IsType(t, &promHistogramMeter{}, histogram())
	require.IsType(t, &promHistogramVecMeter{}, histogramVec())
	require.Same(t, counterVec(), counterVec())
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	creates := Counter("test_create_count")
	executes := CounterVec("test_execute_count", []string{"result"})
	durations := HistogramVec("test_execute_duration_ms", []string{"result"}, BucketInclusion)

	creates.Add(1)
	Counter("test_create_count").Add(1)

	total := 0
	for i := range rand.N(50) + 2 {
		result := strconv.FormatBool(i%2 == 0)
		executes.AddWithLabel(1, map[string]string{"result": result})
		durations.ObserveWithLabels(int64(i), map[string]string{"result": result})
		total += i
	}

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	require.Equal(t, float64(2), byName["onewallet_test_create_count"].Metric[0].GetCounter().GetValue())
	require.Len(t, byName["onewallet_test_execute_count"].Metric, 2)

	hist := byName["onewallet_test_execute_duration_ms"]
	sum := hist.Metric[0].GetHistogram().GetSampleSum() + hist.Metric[1].GetHistogram().GetSampleSum()
	require.Equal(t, float64(total), sum)
}
