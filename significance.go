package ld

import (
	"fmt"
	"sync"

	fet "github.com/glycerine/golang-fisher-exact"
)

// SignificanceTest computes a two-tailed exact p-value for the 2x2 table
//
//	n00 n10
//	n01 n11
type SignificanceTest interface {
	TwoTailedP(n00, n10, n01, n11 int) (float64, error)
}

// maxCachedTables bounds the memo kept by FisherExact.
const maxCachedTables = 1 << 16

// FisherExact is a Fisher exact test that remembers the p-values of tables
// it has already seen; at genome scale the same marginals recur constantly.
// It is safe for concurrent use.
type FisherExact struct {
	mu    sync.RWMutex
	cache map[[4]int]float64
}

// NewFisherExact returns a test whose memo is sized for tables of up to
// capacity observations. The engine passes 2*taxa+10.
func NewFisherExact(capacity int) *FisherExact {
	if capacity < 0 {
		capacity = 0
	}
	if capacity > maxCachedTables {
		capacity = maxCachedTables
	}
	return &FisherExact{cache: make(map[[4]int]float64, capacity)}
}

// TwoTailedP implements SignificanceTest.
func (f *FisherExact) TwoTailedP(n00, n10, n01, n11 int) (float64, error) {
	if n00 < 0 || n10 < 0 || n01 < 0 || n11 < 0 {
		return 0, fmt.Errorf("negative count in contingency table [%d %d %d %d]", n00, n10, n01, n11)
	}

	key := [4]int{n00, n10, n01, n11}

	f.mu.RLock()
	p, ok := f.cache[key]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}

	_, _, _, p = fet.FisherExactTest(n00, n10, n01, n11)
	if p > 1 {
		// Summation can overshoot by a few ulps.
		p = 1
	}

	f.mu.Lock()
	if len(f.cache) < maxCachedTables {
		f.cache[key] = p
	}
	f.mu.Unlock()

	return p, nil
}
