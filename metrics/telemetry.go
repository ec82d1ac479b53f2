// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics exposes process wide meters. Meters are no-ops until
// InitializePrometheusMetrics swaps in the prometheus backend.
package metrics

import (
	"net/http"
	"sync"
)

var metrics Metrics = noop{}

// Metrics is a meter factory.
type Metrics interface {
	GetOrCreateCountMeter(name string) CountMeter
	GetOrCreateCountVecMeter(name string, labels []string) CountVecMeter
	GetOrCreateHistogramMeter(name string, buckets []int64) HistogramMeter
	GetOrCreateHistogramVecMeter(name string, labels []string, buckets []int64) HistogramVecMeter
	GetOrCreateHandler() http.Handler
}

// Buckets in milliseconds. BucketChainCall covers a single rpc round trip, BucketInclusion
// covers submitting a transaction and waiting for its receipt.
var (
	BucketChainCall = []int64{0, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}
	BucketInclusion = []int64{0, 500, 1000, 2000, 3000, 4000, 5000, 7500, 10_000, 20_000, 60_000}
)

type (
	CountMeter        interface{ Add(int64) }
	CountVecMeter     interface{ AddWithLabel(int64, map[string]string) }
	HistogramMeter    interface{ Observe(int64) }
	HistogramVecMeter interface{ ObserveWithLabels(int64, map[string]string) }
)

// HTTPHandler serves the current meter values.
func HTTPHandler() http.Handler { return metrics.GetOrCreateHandler() }

func Counter(name string) CountMeter { return metrics.GetOrCreateCountMeter(name) }

func CounterVec(name string, labels []string) CountVecMeter {
	return metrics.GetOrCreateCountVecMeter(name, labels)
}

func Histogram(name string, buckets []int64) HistogramMeter {
	return metrics.GetOrCreateHistogramMeter(name, buckets)
}

func HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return metrics.GetOrCreateHistogramVecMeter(name, labels, buckets)
}

// lazy resolves f on first call. Package level meters declared with the LazyLoad helpers
// therefore bind to whichever backend is active when they are first used.
func lazy[T any](f func() T) func() T {
	var (
		once  sync.Once
		meter T
	)
	return func() T {
		once.Do(func() { meter = f() })
		return meter
	}
}

func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	return lazy(func() CountVecMeter { return CounterVec(name, labels) })
}

func LazyLoadHistogram(name string, buckets []int64) func() HistogramMeter {
	return lazy(func() HistogramMeter { return Histogram(name, buckets) })
}

func LazyLoadHistogramVec(name string, labels []string, buckets []int64) func() HistogramVecMeter {
	return lazy(func() HistogramVecMeter { return HistogramVec(name, labels, buckets) })
}
