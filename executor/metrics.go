// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package executor

import "github.com/wjorgensen/OneWalletDemo/metrics"

var (
	metricExecuteCount    = metrics.LazyLoadCounterVec("execute_count", []string{"result"})
	metricExecuteDuration = metrics.LazyLoadHistogramVec("execute_duration_ms", []string{"result"}, metrics.BucketInclusion)
)
