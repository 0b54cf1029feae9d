package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ld"
	"github.com/carbocation/ld/genotype"
	"github.com/carbocation/ld/plink"
	"github.com/carbocation/pfx"
)

type chromosomeSummary struct {
	Chromosome string
	Sites      int
	Tests      uint64
	Estimated  int
	MeanR2     float64
	Err        error
}

func main() {
	input := flag.String("input", "", "HapMap file (optionally gzipped or gs://) or PLINK prefix")
	format := flag.String("format", "hapmap", "Input format: hapmap or plink")
	output := flag.String("output", "ld", "Prefix of the per-chromosome TSV reports")
	window := flag.Int("window", 50, "Sliding window size")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of chromosomes analysed at once")
	flag.Parse()

	if *input == "" {
		flag.PrintDefaults()
		log.Fatalln("No input found")
	}

	var table *genotype.Table
	var err error
	switch *format {
	case "hapmap":
		var client *storage.Client
		if strings.HasPrefix(*input, "gs://") {
			client, err = storage.NewClient(context.Background())
			if err != nil {
				log.Fatalln(err)
			}
		}
		table, err = genotype.Open(context.Background(), *input, client)
	case "plink":
		table, err = plink.Read(*input)
	default:
		err = fmt.Errorf("unknown format %q", *format)
	}
	if err != nil {
		log.Fatalln(err)
	}

	chroms := table.Chromosomes()
	log.Println("Launching", *workers, "workers for", len(chroms), "chromosomes")

	// Engines are single-use and sequential, so each chromosome gets its own.
	work := make(chan string)
	summaries := make(chan chromosomeSummary)
	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for chr := range work {
				summaries <- Worker(table, chr, *window, *output)
			}
		}()
	}

	go func() {
		for _, chr := range chroms {
			work <- chr
		}
		close(work)
		wg.Wait()
		close(summaries)
	}()

	failed := false
	for s := range summaries {
		if s.Err != nil {
			log.Printf("Chromosome %s failed: %v\n", s.Chromosome, s.Err)
			failed = true
			continue
		}
		log.Printf("Chromosome %s: %d sites, %d tests, %d estimated, mean r2 %.4f\n", s.Chromosome, s.Sites, s.Tests, s.Estimated, s.MeanR2)
	}
	if failed {
		os.Exit(1)
	}
}

// Worker runs one LD pass over the sites of chr and writes its report.
func Worker(table *genotype.Table, chr string, window int, prefix string) chromosomeSummary {
	summary := chromosomeSummary{Chromosome: chr, MeanR2: math.NaN()}

	sub, err := table.Subset(table.SitesOnChromosome(chr))
	if err != nil {
		summary.Err = err
		return summary
	}
	summary.Sites = sub.NumSites()
	if sub.NumSites() < 2 {
		return summary
	}

	cfg := ld.DefaultConfig()
	cfg.Design = ld.SlidingWindow{Width: window}
	engine, err := ld.New(sub, cfg)
	if err != nil {
		summary.Err = err
		return summary
	}
	summary.Tests = engine.TotalTests()

	results, err := engine.Run(nil)
	if err != nil {
		summary.Err = err
		return summary
	}

	sum := 0.0
	results.Each(func(p ld.PairResult) bool {
		if !math.IsNaN(p.RSqr) {
			sum += p.RSqr
			summary.Estimated++
		}
		return true
	})
	if summary.Estimated > 0 {
		summary.MeanR2 = sum / float64(summary.Estimated)
	}

	f, err := os.Create(fmt.Sprintf("%s.%s.tsv", prefix, chr))
	if err != nil {
		summary.Err = pfx.Err(err)
		return summary
	}
	defer f.Close()

	summary.Err = ld.WriteTable(f, results)
	return summary
}
