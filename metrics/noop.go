// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noop is both the factory and every meter it hands out.
type noop struct{}

func (noop) GetOrCreateCountMeter(string) CountMeter { return noop{} }

func (noop) GetOrCreateCountVecMeter(string, []string) CountVecMeter { return noop{} }

func (noop) GetOrCreateHistogramMeter(string, []int64) HistogramMeter { return noop{} }

func (noop) GetOrCreateHistogramVecMeter(string, []string, []int64) HistogramVecMeter {
	return noop{}
}

func (noop) GetOrCreateHandler() http.Handler { return http.NotFoundHandler() }

func (noop) Add(int64) {}

func (noop) AddWithLabel(int64, map[string]string) {}

func (noop) Observe(int64) {}

func (noop) ObserveWithLabels(int64, map[string]string) {}
