package ld

import (
	"bufio"
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
)

// Table is a read-only row/column view of a report.
type Table interface {
	Title() string
	ColumnNames() []string
	ColumnCount() int
	RowCount() uint64
	Row(row uint64) []interface{}
	ValueAt(row uint64, col int) interface{}
}

const (
	notImplemented = "NotImplemented"
	notApplicable  = "N/A"
)

var (
	pairColumns = []string{"Locus1", "Position1", "Site1",
		"NumberOfStates1", "States1", "Frequency1", "Locus2", "Position2",
		"Site2", "NumberOfStates2", "States2", "Frequency2", "Dist_bp", "R^2", "DPrime", "pDiseq", "N"}

	accumulativeColumns = []string{"R2BinMin", "R2BinMax", "Count"}
)

var _ Table = (*Results)(nil)

// Title implements Table.
func (r *Results) Title() string { return "Linkage Disequilibrium" }

// ColumnNames implements Table.
func (r *Results) ColumnNames() []string {
	if r.accumulative {
		return append([]string(nil), accumulativeColumns...)
	}
	return append([]string(nil), pairColumns...)
}

// ColumnCount implements Table.
func (r *Results) ColumnCount() int {
	if r.accumulative {
		return len(accumulativeColumns)
	}
	return len(pairColumns)
}

// RowCount is the number of tests in per-pair mode and the number of bins
// plus the NaN bin in accumulative mode.
func (r *Results) RowCount() uint64 {
	if r.accumulative {
		return uint64(len(r.bins))
	}
	return r.enum.TotalTests()
}

// Row implements Table. Rows of per-pair mode follow test order.
func (r *Results) Row(row uint64) []interface{} {
	if r.accumulative {
		nBins := uint64(len(r.bins) - 1)
		if row == nBins {
			return []interface{}{math.NaN(), math.NaN(), r.bins[row]}
		}
		start := r.binWidth * float64(row)
		return []interface{}{start, start + r.binWidth, r.bins[row]}
	}

	s1, s2 := r.enum.Pair(row)
	info := r.sites

	var dist interface{} = notApplicable
	if info.Chromosome(s1) == info.Chromosome(s2) {
		d := info.Position(s1) - info.Position(s2)
		if d < 0 {
			d = -d
		}
		dist = d
	}

	return []interface{}{
		info.Chromosome(s1),
		info.Position(s1),
		s1,
		2,
		info.MajorAllele(s1) + ":" + info.MinorAllele(s1),
		notImplemented,
		info.Chromosome(s2),
		info.Position(s2),
		s2,
		2,
		info.MajorAllele(s2) + ":" + info.MinorAllele(s2),
		notImplemented,
		dist,
		r.RSqr(s1, s2),
		r.DPrime(s1, s2),
		r.PValue(s1, s2),
		r.SampleSize(s1, s2),
	}
}

// ValueAt implements Table.
func (r *Results) ValueAt(row uint64, col int) interface{} {
	return r.Row(row)[col]
}

// WriteTable writes t as tab-delimited text with a header line. NaN values
// are written as "NaN".
func WriteTable(w io.Writer, t Table) error {
	bw := bufio.NewWriter(w)

	for i, name := range t.ColumnNames() {
		if i > 0 {
			bw.WriteByte('\t')
		}
		bw.WriteString(name)
	}
	bw.WriteByte('\n')

	rows := t.RowCount()
	for i := uint64(0); i < rows; i++ {
		for j, v := range t.Row(i) {
			if j > 0 {
				bw.WriteByte('\t')
			}
			fmt.Fprint(bw, v)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return pfx.Err(err)
		}
	}

	if err := bw.Flush(); err != nil {
		return pfx.Err(err)
	}
	return nil
}
