package ld

import (
	"errors"
	"testing"
)

type pair struct{ row, col int }

// expectedPairs lists, by brute force, every pair (row > col) a design covers.
func expectedPairs(d Design, n int) map[pair]bool {
	out := make(map[pair]bool)
	for r := 1; r < n; r++ {
		for c := 0; c < r; c++ {
			var in bool
			switch v := d.(type) {
			case AllPairs:
				in = true
			case SlidingWindow:
				in = r-c <= v.Width
			case SiteVsAll:
				in = r == v.Target || c == v.Target
			case SiteList:
				for _, s := range v.Sites {
					if s == r || s == c {
						in = true
					}
				}
			}
			if in {
				out[pair{r, c}] = true
			}
		}
	}
	return out
}

func designsFor(n int) []Design {
	designs := []Design{AllPairs{}}
	for w := 1; w <= n; w++ {
		designs = append(designs, SlidingWindow{Width: w})
	}
	for t := 0; t < n; t++ {
		designs = append(designs, SiteVsAll{Target: t})
	}

	// Every non-empty subset of sites, for small n.
	for mask := 1; mask < 1<<uint(n); mask++ {
		var sites []int
		for s := 0; s < n; s++ {
			if mask&(1<<uint(s)) != 0 {
				sites = append(sites, s)
			}
		}
		designs = append(designs, SiteList{Sites: sites})
	}
	return designs
}

func TestEnumeratorCoversDesign(t *testing.T) {
	for n := 2; n <= 9; n++ {
		for _, d := range designsFor(n) {
			e, err := NewEnumerator(d, n)
			if err != nil {
				t.Fatalf("%s with %d sites: %v", d, n, err)
			}

			expected := expectedPairs(d, n)
			if e.TotalTests() != uint64(len(expected)) {
				t.Errorf("%s with %d sites: Got %d tests, expected %d", d, n, e.TotalTests(), len(expected))
				continue
			}

			seen := make(map[pair]bool)
			for i := uint64(0); i < e.TotalTests(); i++ {
				r, c := e.Pair(i)
				if r <= c {
					t.Errorf("%s with %d sites: index %d gave (%d,%d), expected row > col", d, n, i, r, c)
				}
				p := pair{r, c}
				if !expected[p] {
					t.Errorf("%s with %d sites: index %d gave (%d,%d), which is not in the design", d, n, i, r, c)
				}
				if seen[p] {
					t.Errorf("%s with %d sites: (%d,%d) visited twice", d, n, r, c)
				}
				seen[p] = true

				idx, ok := e.Index(c, r)
				if !ok || idx != i {
					t.Errorf("%s with %d sites: Index(%d,%d) = %d,%v, expected %d", d, n, c, r, idx, ok, i)
				}
			}

			// Pairs outside the design have no index.
			for r := 1; r < n; r++ {
				for c := 0; c < r; c++ {
					if _, ok := e.Index(r, c); ok != expected[pair{r, c}] {
						t.Errorf("%s with %d sites: Index(%d,%d) ok=%v", d, n, r, c, ok)
					}
				}
			}
		}
	}
}

func TestEnumeratorSlidingWindowOrder(t *testing.T) {
	e, err := NewEnumerator(SlidingWindow{Width: 2}, 5)
	if err != nil {
		t.Fatal(err)
	}

	expected := []pair{{1, 0}, {2, 0}, {2, 1}, {3, 1}, {3, 2}, {4, 2}, {4, 3}}
	if e.TotalTests() != uint64(len(expected)) {
		t.Fatalf("Got %d tests, expected %d", e.TotalTests(), len(expected))
	}
	for i, want := range expected {
		if r, c := e.Pair(uint64(i)); r != want.row || c != want.col {
			t.Errorf("index %d: Got (%d,%d), expected (%d,%d)", i, r, c, want.row, want.col)
		}
	}
}

func TestEnumeratorSiteListOrder(t *testing.T) {
	// Duplicates and order of the list do not matter.
	e, err := NewEnumerator(SiteList{Sites: []int{3, 1, 3}}, 5)
	if err != nil {
		t.Fatal(err)
	}

	expected := []pair{{1, 0}, {2, 1}, {3, 1}, {4, 1}, {3, 0}, {3, 2}, {4, 3}}
	if e.TotalTests() != uint64(len(expected)) {
		t.Fatalf("Got %d tests, expected %d", e.TotalTests(), len(expected))
	}
	for i, want := range expected {
		if r, c := e.Pair(uint64(i)); r != want.row || c != want.col {
			t.Errorf("index %d: Got (%d,%d), expected (%d,%d)", i, r, c, want.row, want.col)
		}
	}

	if got := e.Design().(SiteList).Sites; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Got %v, expected [1 3]", got)
	}
}

func TestEnumeratorLargeIndices(t *testing.T) {
	n := 3000000
	e, err := NewEnumerator(AllPairs{}, n)
	if err != nil {
		t.Fatal(err)
	}

	total := e.TotalTests()
	for _, i := range []uint64{0, 1, total / 3, total/2 + 7, total - 2, total - 1} {
		r, c := e.Pair(i)
		if r <= c || r >= n || c < 0 {
			t.Fatalf("index %d: Got (%d,%d)", i, r, c)
		}
		if idx, ok := e.Index(r, c); !ok || idx != i {
			t.Errorf("index %d: round trip gave %d", i, idx)
		}
	}

	if r, c := e.Pair(total - 1); r != n-1 || c != n-2 {
		t.Errorf("Got (%d,%d) for the last pair, expected (%d,%d)", r, c, n-1, n-2)
	}
}

func TestEnumeratorNormalize(t *testing.T) {
	e, err := NewEnumerator(SlidingWindow{Width: 4}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.Design().(AllPairs); !ok {
		t.Errorf("Got %s, expected a full window to become All", e.Design())
	}

	cases := []struct {
		design Design
		n      int
		err    error
	}{
		{SiteList{}, 5, ErrEmptySiteList},
		{SiteList{Sites: []int{1, 5}}, 5, ErrSiteOutOfRange},
		{SiteList{Sites: []int{-1}}, 5, ErrSiteOutOfRange},
		{SlidingWindow{Width: 0}, 5, ErrWindowSize},
		{SiteVsAll{Target: 5}, 5, ErrTargetSite},
		{AllPairs{}, 1, ErrTooFewSites},
		{nil, 5, ErrUnknownDesign},
	}
	for _, c := range cases {
		if _, err := NewEnumerator(c.design, c.n); !errors.Is(err, c.err) {
			t.Errorf("%v with %d sites: Got %v, expected %v", c.design, c.n, err, c.err)
		}
	}
}
