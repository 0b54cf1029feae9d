package ld

import (
	"errors"
	"fmt"
)

// State is the lifecycle stage of an Engine.
type State int

const (
	Idle State = iota
	Initialized
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Initialized:
		return "Initialized"
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Illegal selection"
	}
}

var (
	ErrNotCompleted = errors.New("LD pass has not completed")
	ErrAlreadyRun   = errors.New("LD pass was already started")
)

// Config holds the parameters of one LD pass.
type Config struct {
	Design       Design
	HetTreatment HetTreatment

	// Accumulative keeps only a histogram of r² with Bins bins instead of
	// every pair.
	Accumulative bool
	Bins         int

	// MinTaxaForEstimate is the smallest sample size for which r², D' and p
	// are estimated.
	MinTaxaForEstimate int

	// MinMinorCount is the smallest minor allele count, at either site, for
	// a pair to be estimated at all.
	MinMinorCount int

	// MinR2ForSignificance skips the exact test for pairs with a lower r².
	// A negative value tests every estimable pair.
	MinR2ForSignificance float64

	// Test overrides the Fisher exact test.
	Test SignificanceTest
}

// DefaultConfig returns the settings used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		Design:               SlidingWindow{Width: 50},
		HetTreatment:         Homozygous,
		Bins:                 100,
		MinTaxaForEstimate:   20,
		MinMinorCount:        2,
		MinR2ForSignificance: -1,
	}
}

// Engine runs a single sequential LD pass over an AlleleSource. An engine is
// used once: New, then Run, then read the Results.
type Engine struct {
	src   AlleleSource
	cfg   Config
	enum  *Enumerator
	test  SignificanceTest
	state State

	results *Results
	err     error
}

// New validates cfg against src and allocates the result store. Invalid
// designs and the unimplemented Genotype treatment are rejected here.
func New(src AlleleSource, cfg Config) (*Engine, error) {
	if src == nil {
		return nil, errors.New("nil allele source")
	}
	if err := checkTreatment(cfg.HetTreatment); err != nil {
		return nil, err
	}
	if cfg.Accumulative && cfg.Bins <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrBins, cfg.Bins)
	}

	enum, err := NewEnumerator(cfg.Design, src.NumSites())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		src:   src,
		cfg:   cfg,
		enum:  enum,
		test:  cfg.Test,
		state: Initialized,
	}
	if e.test == nil {
		e.test = NewFisherExact(2*src.NumTaxa() + 10)
	}
	e.results = newResults(src, enum, cfg.Accumulative, cfg.Bins)

	return e, nil
}

// State returns the current lifecycle stage.
func (e *Engine) State() State { return e.state }

// TotalTests is the number of pairs the pass will compute.
func (e *Engine) TotalTests() uint64 { return e.enum.TotalTests() }

// Enumerator returns the pair enumeration used by the pass.
func (e *Engine) Enumerator() *Enumerator { return e.enum }

// Run computes every pair of the design in index order, calling progress (if
// not nil) whenever the completed percentage changes. It blocks until the
// pass ends; there is no way to interrupt it. On error the engine moves to
// Failed and its partial results are not available.
func (e *Engine) Run(progress ProgressFunc) (*Results, error) {
	if e.state != Initialized {
		return nil, fmt.Errorf("%w: engine is %s", ErrAlreadyRun, e.state)
	}
	if err := checkTreatment(e.cfg.HetTreatment); err != nil {
		e.fail(err)
		return nil, err
	}
	e.state = Running

	if err := e.run(progress); err != nil {
		e.fail(err)
		return nil, err
	}

	e.state = Completed
	return e.results, nil
}

func (e *Engine) fail(err error) {
	e.state = Failed
	e.err = err
	e.results = nil
}

func (e *Engine) run(progress ProgressFunc) error {
	working := e.src
	switch e.cfg.HetTreatment {
	case Haplotype:
	case Homozygous:
		view, err := e.src.HomozygousView()
		if err != nil {
			return fmt.Errorf("building homozygous view: %w", err)
		}
		working = view
	default:
		return checkTreatment(e.cfg.HetTreatment)
	}

	total := e.enum.TotalTests()
	lastPercent := -1
	for i := uint64(0); i < total; i++ {
		r, c := e.enum.Pair(i)

		res, err := pairFromSource(working, r, c, e.cfg.MinMinorCount, e.cfg.MinTaxaForEstimate, e.cfg.MinR2ForSignificance, e.test)
		if err != nil {
			return err
		}
		e.results.add(res)

		if progress != nil {
			if pct := percent(i+1, total); pct != lastPercent {
				lastPercent = pct
				progress(pct)
			}
		}
	}

	return nil
}

// percent rounds 100*done/total to the nearest integer.
func percent(done, total uint64) int {
	return int((200*done + total) / (2 * total))
}

// Results returns the store once the pass has completed.
func (e *Engine) Results() (*Results, error) {
	switch e.state {
	case Completed:
		return e.results, nil
	case Failed:
		return nil, fmt.Errorf("%w: %v", ErrNotCompleted, e.err)
	default:
		return nil, fmt.Errorf("%w: engine is %s", ErrNotCompleted, e.state)
	}
}

func pairFromSource(src AlleleSource, r, c, minMinor, minTaxa int, minR2 float64, test SignificanceTest) (PairResult, error) {
	rMj, err := src.AllelePresence(r, Major)
	if err != nil {
		return PairResult{}, err
	}
	rMn, err := src.AllelePresence(r, Minor)
	if err != nil {
		return PairResult{}, err
	}
	cMj, err := src.AllelePresence(c, Major)
	if err != nil {
		return PairResult{}, err
	}
	cMn, err := src.AllelePresence(c, Minor)
	if err != nil {
		return PairResult{}, err
	}

	return Statistic(rMj, rMn, cMj, cMn, minMinor, minTaxa, minR2, test, r, c)
}

// PairLD estimates LD for a single pair outside of any engine, always
// computing the exact test for estimable pairs.
func PairLD(src AlleleSource, site1, site2 int, treatment HetTreatment, minTaxaForEstimate, minMinorCount int) (PairResult, error) {
	n := src.NumSites()
	if site1 < 0 || site1 >= n || site2 < 0 || site2 >= n {
		return PairResult{}, fmt.Errorf("%w: pair (%d,%d) with %d sites", ErrSiteOutOfRange, site1, site2, n)
	}

	working := src
	switch treatment {
	case Haplotype:
	case Homozygous:
		view, err := src.HomozygousView()
		if err != nil {
			return PairResult{}, err
		}
		working = view
	default:
		return PairResult{}, checkTreatment(treatment)
	}

	return pairFromSource(working, site1, site2, minMinorCount, minTaxaForEstimate, -1, NewFisherExact(2*src.NumTaxa()+10))
}
