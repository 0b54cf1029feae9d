package bgen

// Choose is the binomial coefficient n choose k, 0 when k is outside [0, n].
// Layout 2 uses it to count the genotypes of a sample from its ploidy and
// allele count.
func Choose(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	if k > n-k {
		k = n - k
	}

	// Each partial product is itself a binomial coefficient, so the division
	// is exact.
	ans := 1
	for j := 1; j <= k; j++ {
		ans = ans * (n - k + j) / j
	}
	return ans
}

// WhichSQLiteDriver names the database/sql driver used by OpenBGI.
func WhichSQLiteDriver() string {
	return whichSQLiteDriver
}
