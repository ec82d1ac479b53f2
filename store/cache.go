// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

type loader func(key any) (any, error)

// cache is an LRU over golang-lru counting hits and misses.
type cache struct {
	*lru.Cache
	hit, miss atomic.Int64
}

func newCache(size int) (*cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &cache{Cache: c}, nil
}

// getOrLoad first tries the cache, loading and adding on a miss.
func (c *cache) getOrLoad(key any, load loader) (any, error) {
	if v, ok := c.Get(key); ok {
		c.hit.Add(1)
		metricCacheLookup().AddWithLabel(1, map[string]string{"result": "hit"})
		return v, nil
	}
	c.miss.Add(1)
	metricCacheLookup().AddWithLabel(1, map[string]string{"result": "miss"})

	v, err := load(key)
	if err != nil {
		return nil, err
	}
	c.Add(key, v)
	return v, nil
}

func (c *cache) stats() (hit, miss int64) {
	return c.hit.Load(), c.miss.Load()
}
