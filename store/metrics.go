// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import "github.com/wjorgensen/OneWalletDemo/metrics"

var metricCacheLookup = metrics.LazyLoadCounterVec("store_cache_lookup_count", []string{"result"})
