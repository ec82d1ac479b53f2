// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import "github.com/wjorgensen/OneWalletDemo/metrics"

var (
	metricWriteCount        = metrics.LazyLoadCounterVec("chain_write_count", []string{"path", "result"})
	metricReadDuration      = metrics.LazyLoadHistogram("chain_read_duration_ms", metrics.BucketChainCall)
	metricInclusionDuration = metrics.LazyLoadHistogram("chain_inclusion_duration_ms", metrics.BucketInclusion)
)
