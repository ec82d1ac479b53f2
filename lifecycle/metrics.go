// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package lifecycle

import "github.com/wjorgensen/OneWalletDemo/metrics"

var (
	metricCreateCount = metrics.LazyLoadCounterVec("account_create_count", []string{"result"})
	metricLoadCount   = metrics.LazyLoadCounterVec("account_load_count", []string{"result"})
)
