package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ld"
	"github.com/carbocation/ld/bgen"
	"github.com/carbocation/ld/genotype"
	"github.com/carbocation/ld/plink"
	"github.com/carbocation/pfx"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatalln(err)
	}

	if cfg.Input == "" {
		log.Fatalln("Must specify an -input file")
	}

	ctx := context.Background()

	var client *storage.Client
	if strings.HasPrefix(cfg.Input, "gs://") {
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	log.Println("Loading", cfg.Format, "genotypes from", cfg.Input)
	table, err := loadTable(ctx, cfg, client)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Loaded %d sites for %d taxa on %d chromosomes\n", table.NumSites(), table.NumTaxa(), len(table.Chromosomes()))

	sites, err := resolveSites(cfg)
	if err != nil {
		log.Fatalln(err)
	}

	engineCfg, err := cfg.engineConfig(sites)
	if err != nil {
		log.Fatalln(err)
	}

	engine, err := ld.New(table, engineCfg)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Testing %d pairs (%s, %s)\n", engine.TotalTests(), engine.Enumerator().Design(), engineCfg.HetTreatment)

	results, err := engine.Run(func(pct int) {
		if pct%10 == 0 {
			log.Printf("%d%% complete\n", pct)
		}
	})
	if err != nil {
		log.Fatalln(err)
	}

	if err := writeReport(cfg.Output, results); err != nil {
		log.Fatalln(err)
	}

	if cfg.Intervals != "" {
		if err := summarizeIntervals(cfg, results); err != nil {
			log.Fatalln(err)
		}
	}
}

func loadTable(ctx context.Context, cfg runConfig, client *storage.Client) (*genotype.Table, error) {
	switch cfg.Format {
	case "hapmap":
		return genotype.Open(ctx, cfg.Input, client)
	case "plink":
		return plink.Read(strings.TrimSuffix(cfg.Input, ".bed"))
	case "bgen":
		b, err := bgen.OpenFromStorage(ctx, cfg.Input, client)
		if err != nil {
			return nil, err
		}
		defer b.Close()

		log.Printf("BGEN: %d variants, %d samples, %s, %s\n", b.NVariants, b.NSamples, b.FlagLayout, b.FlagCompression)
		return bgen.LoadTable(b, cfg.CallThreshold)
	default:
		return nil, pfx.Err(fmt.Errorf("unknown format %q", cfg.Format))
	}
}

// resolveSites merges the explicit site ordinals with the rsIDs looked up in
// the BGI index.
func resolveSites(cfg runConfig) ([]int, error) {
	sites := append([]int(nil), cfg.Sites...)
	if len(cfg.RSIDs) == 0 {
		return sites, nil
	}

	if cfg.Format != "bgen" {
		return nil, pfx.Err(fmt.Errorf("rsids can only be resolved for bgen input"))
	}

	idxPath := cfg.BGI
	if idxPath == "" {
		if strings.HasPrefix(cfg.Input, "gs://") {
			return nil, pfx.Err(fmt.Errorf("a local -bgi is required for %s", cfg.Input))
		}
		idxPath = cfg.Input + ".bgi"
	}

	bgi, err := bgen.OpenBGI(idxPath)
	if err != nil {
		return nil, err
	}
	defer bgi.Close()

	idx, err := bgi.SiteIndexes(cfg.RSIDs)
	if err != nil {
		return nil, err
	}
	log.Printf("Resolved %d rsIDs from %s\n", len(idx), idxPath)

	return append(sites, idx...), nil
}

func writeReport(path string, results *ld.Results) error {
	var out io.WriteCloser = os.Stdout
	if path != "" {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return pfx.Err(err)
		}
		out = f
	}

	if err := ld.WriteTable(out, results); err != nil {
		return err
	}
	if path != "" {
		log.Println("Wrote", results.RowCount(), "rows to", path)
		return out.Close()
	}
	return nil
}

func summarizeIntervals(cfg runConfig, results *ld.Results) error {
	f, err := os.Open(cfg.Intervals)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	var intervals []ld.Interval
	if strings.HasSuffix(cfg.Intervals, ".bed") {
		intervals, err = ld.ReadBEDIntervals(f)
	} else {
		intervals, err = ld.ReadIntervals(f)
	}
	if err != nil {
		return err
	}

	summaries, err := ld.MeanR2ByInterval(results, intervals)
	if err != nil {
		return err
	}

	var out io.WriteCloser = os.Stderr
	if cfg.IntervalOutput != "" {
		out, err = os.OpenFile(cfg.IntervalOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return pfx.Err(err)
		}
		defer out.Close()
	}

	log.Printf("Summarized mean r2 over %d intervals\n", len(summaries))
	return ld.WriteIntervalSummary(out, summaries)
}
