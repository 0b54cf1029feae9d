package ld

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/carbocation/genomisc"
	"github.com/carbocation/pfx"
	"gonum.org/v1/gonum/stat"
)

// Interval is a closed genomic range [Start, End] on one chromosome.
type Interval struct {
	ID         string
	Chromosome string
	Start      int
	End        int
}

// IntervalSummary is the mean r² of the pairs whose first site lies in an
// interval.
type IntervalSummary struct {
	Interval
	MeanR2 float64
	Count  int
}

// Columns of an interval file
const (
	intervalSeqID = iota
	intervalStart
	intervalEnd
	intervalID
)

// ReadIntervals parses seqid,start,end,id rows. The delimiter is detected from
// the content; a header line starting with "seqnames" is skipped.
func ReadIntervals(r io.Reader) ([]Interval, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = genomisc.DetermineDelimiter(bytes.NewReader(data))
	cr.FieldsPerRecord = -1

	recs, err := cr.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Interval, 0, len(recs))
	for i, rec := range recs {
		if len(rec) == 0 || strings.HasPrefix(rec[0], "seqnames") {
			continue
		}
		if len(rec) <= intervalID {
			return nil, pfx.Err(fmt.Errorf("line %d: expected 4 fields, got %d", i+1, len(rec)))
		}

		start, err := strconv.Atoi(strings.TrimSpace(rec[intervalStart]))
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: %w", i+1, err))
		}
		end, err := strconv.Atoi(strings.TrimSpace(rec[intervalEnd]))
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: %w", i+1, err))
		}
		if end < start {
			return nil, pfx.Err(fmt.Errorf("line %d: end %d precedes start %d", i+1, end, start))
		}

		out = append(out, Interval{
			ID:         strings.TrimSpace(rec[intervalID]),
			Chromosome: strings.TrimSpace(rec[intervalSeqID]),
			Start:      start,
			End:        end,
		})
	}

	return out, nil
}

// ReadBEDIntervals parses a UCSC BED file of regions. BED ranges are 0-based
// and half-open; the returned intervals are 1-based and closed. Lines starting
// with "#", "track" or "browser" are skipped. Regions without a name column
// are named chrom:start-end after conversion.
func ReadBEDIntervals(r io.Reader) ([]Interval, error) {
	var out []Interval

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") ||
			strings.HasPrefix(text, "track") || strings.HasPrefix(text, "browser") {
			continue
		}

		fields := strings.Split(strings.TrimSpace(text), "\t")
		if len(fields) < 3 {
			return nil, pfx.Err(fmt.Errorf("line %d: expected at least 3 columns, got %d", line, len(fields)))
		}

		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: %w", line, err))
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: %w", line, err))
		}
		if start < 0 || end <= start {
			return nil, pfx.Err(fmt.Errorf("line %d: bad range %d-%d", line, start, end))
		}

		iv := Interval{Chromosome: fields[0], Start: start + 1, End: end}
		if len(fields) > 3 && fields[3] != "" {
			iv.ID = fields[3]
		} else {
			iv.ID = fmt.Sprintf("%s:%d-%d", iv.Chromosome, iv.Start, iv.End)
		}
		out = append(out, iv)
	}
	if err := sc.Err(); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// MeanR2ByInterval averages the non-NaN r² of every stored pair, assigning a
// pair to the interval containing the position of its first site. Intervals
// must not overlap. Summaries are returned in input order; an interval
// without pairs reports a mean of 0.
func MeanR2ByInterval(res *Results, intervals []Interval) ([]IntervalSummary, error) {
	if res.Accumulative() {
		return nil, fmt.Errorf("accumulative results carry no per-pair r2")
	}

	byChr := make(map[string][]int)
	for i, iv := range intervals {
		byChr[iv.Chromosome] = append(byChr[iv.Chromosome], i)
	}
	for chr, idx := range byChr {
		sort.Slice(idx, func(a, b int) bool { return intervals[idx[a]].Start < intervals[idx[b]].Start })
		for k := 1; k < len(idx); k++ {
			if prev, cur := intervals[idx[k-1]], intervals[idx[k]]; cur.Start <= prev.End {
				return nil, fmt.Errorf("intervals %s and %s overlap on %s", prev.ID, cur.ID, chr)
			}
		}
	}

	values := make([][]float64, len(intervals))
	sites := res.Sites()
	res.Each(func(p PairResult) bool {
		if math.IsNaN(p.RSqr) {
			return true
		}
		idx := byChr[sites.Chromosome(p.Site1)]
		pos := sites.Position(p.Site1)

		// First interval whose end is at or beyond pos.
		k := sort.Search(len(idx), func(k int) bool { return intervals[idx[k]].End >= pos })
		if k < len(idx) && intervals[idx[k]].Start <= pos {
			values[idx[k]] = append(values[idx[k]], p.RSqr)
		}
		return true
	})

	out := make([]IntervalSummary, len(intervals))
	for i, iv := range intervals {
		out[i] = IntervalSummary{Interval: iv, Count: len(values[i])}
		if len(values[i]) > 0 {
			out[i].MeanR2 = stat.Mean(values[i], nil)
		}
	}

	return out, nil
}

// WriteIntervalSummary writes summaries as comma-separated values with a
// header, ordered by chromosome and then start.
func WriteIntervalSummary(w io.Writer, summaries []IntervalSummary) error {
	summaries = append([]IntervalSummary(nil), summaries...)
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Chromosome != b.Chromosome {
			return chromosomeLess(a.Chromosome, b.Chromosome)
		}
		return a.Start < b.Start
	})

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"seqid", "start", "end", "rr_id", "average_r2_ld"}); err != nil {
		return pfx.Err(err)
	}
	for _, s := range summaries {
		rec := []string{
			s.Chromosome,
			strconv.Itoa(s.Start),
			strconv.Itoa(s.End),
			s.ID,
			strconv.FormatFloat(s.MeanR2, 'g', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return pfx.Err(err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return pfx.Err(err)
	}
	return nil
}

// chromosomeLess orders numeric chromosome names numerically and before any
// other name, which are ordered as strings.
func chromosomeLess(a, b string) bool {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}
