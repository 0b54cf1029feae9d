package main

import (
	"flag"
	"fmt"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/carbocation/ld"
	"github.com/carbocation/pfx"
)

// runConfig holds everything one scan needs. It can be read from a TOML file;
// flags that are given explicitly win over the file.
type runConfig struct {
	Input  string `toml:"input"`
	Format string `toml:"format"`
	BGI    string `toml:"bgi"`
	Output string `toml:"output"`

	Design    string   `toml:"design"`
	Window    int      `toml:"window"`
	Target    int      `toml:"target"`
	Sites     []int    `toml:"sites"`
	RSIDs     []string `toml:"rsids"`
	Treatment string   `toml:"het_treatment"`

	Accumulative  bool    `toml:"accumulative"`
	Bins          int     `toml:"bins"`
	MinTaxa       int     `toml:"min_taxa"`
	MinMinor      int     `toml:"min_minor"`
	MinR2         float64 `toml:"min_r2_for_significance"`
	CallThreshold float64 `toml:"call_threshold"`

	Intervals      string `toml:"intervals"`
	IntervalOutput string `toml:"interval_output"`
}

func defaultRunConfig() runConfig {
	d := ld.DefaultConfig()
	return runConfig{
		Format:    "hapmap",
		Design:    "window",
		Window:    d.Design.(ld.SlidingWindow).Width,
		Treatment: d.HetTreatment.String(),
		Bins:      d.Bins,
		MinTaxa:   d.MinTaxaForEstimate,
		MinMinor:  d.MinMinorCount,
		MinR2:     d.MinR2ForSignificance,
	}
}

// parseFlags fills a runConfig from the defaults, then the TOML file named by
// -config, then any flag set on the command line.
func parseFlags() (runConfig, error) {
	cfg := defaultRunConfig()

	configPath := flag.String("config", "", "Optional TOML file with the run settings. Flags given explicitly take precedence.")
	flag.StringVar(&cfg.Input, "input", cfg.Input, "Genotype input. Optionally, may be a google storage URL (gs://) for hapmap and bgen")
	flag.StringVar(&cfg.Format, "format", cfg.Format, "Input format: hapmap, plink (prefix of .bed/.bim/.fam) or bgen")
	flag.StringVar(&cfg.BGI, "bgi", cfg.BGI, "BGI index used to resolve -rsids. Defaults to the bgen path + .bgi")
	flag.StringVar(&cfg.Output, "output", cfg.Output, "Path to the TSV report. Defaults to stdout")
	flag.StringVar(&cfg.Design, "design", cfg.Design, "Pairs to test: all, window, site or list")
	flag.IntVar(&cfg.Window, "window", cfg.Window, "Window size for -design=window")
	flag.IntVar(&cfg.Target, "target", cfg.Target, "0-based site for -design=site")
	sites := flag.String("sites", "", "Comma-separated 0-based sites for -design=list")
	rsids := flag.String("rsids", "", "Comma-separated rsIDs for -design=list (bgen only)")
	flag.StringVar(&cfg.Treatment, "het", cfg.Treatment, "Heterozygote treatment: Haplotype or Homozygous")
	flag.BoolVar(&cfg.Accumulative, "accumulative", cfg.Accumulative, "Only report a histogram of r2")
	flag.IntVar(&cfg.Bins, "bins", cfg.Bins, "Number of r2 bins with -accumulative")
	flag.IntVar(&cfg.MinTaxa, "mintaxa", cfg.MinTaxa, "Minimum sample size to estimate a pair")
	flag.IntVar(&cfg.MinMinor, "minminor", cfg.MinMinor, "Minimum minor allele count at both sites")
	flag.Float64Var(&cfg.MinR2, "minr2", cfg.MinR2, "Skip the exact test below this r2. Negative tests every pair")
	flag.Float64Var(&cfg.CallThreshold, "threshold", cfg.CallThreshold, "Probability needed to call a bgen genotype. 0 uses the library default")
	flag.StringVar(&cfg.Intervals, "intervals", cfg.Intervals, "Optional interval file (seqid,start,end,id or .bed) to summarize mean r2")
	flag.StringVar(&cfg.IntervalOutput, "intervalout", cfg.IntervalOutput, "Path to the interval summary CSV")
	flag.Parse()

	if *configPath != "" {
		explicit := make(map[string]string)
		flag.Visit(func(f *flag.Flag) { explicit[f.Name] = f.Value.String() })

		if _, err := toml.DecodeFile(expandHome(*configPath), &cfg); err != nil {
			return cfg, pfx.Err(err)
		}
		for name, value := range explicit {
			if err := flag.Set(name, value); err != nil {
				return cfg, pfx.Err(err)
			}
		}
	}

	if *sites != "" {
		cfg.Sites = cfg.Sites[:0]
		for _, s := range strings.Split(*sites, ",") {
			v, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil {
				return cfg, pfx.Err(fmt.Errorf("-sites: %w", err))
			}
			cfg.Sites = append(cfg.Sites, v)
		}
	}
	if *rsids != "" {
		cfg.RSIDs = strings.Split(*rsids, ",")
	}

	cfg.Input = expandHome(cfg.Input)
	cfg.Output = expandHome(cfg.Output)
	cfg.BGI = expandHome(cfg.BGI)
	cfg.Intervals = expandHome(cfg.Intervals)
	cfg.IntervalOutput = expandHome(cfg.IntervalOutput)

	return cfg, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	return filepath.Join(usr.HomeDir, path[2:])
}

// engineConfig translates the run settings. sites are the resolved ordinals
// for a list design.
func (cfg runConfig) engineConfig(sites []int) (ld.Config, error) {
	out := ld.DefaultConfig()
	out.Accumulative = cfg.Accumulative
	out.Bins = cfg.Bins
	out.MinTaxaForEstimate = cfg.MinTaxa
	out.MinMinorCount = cfg.MinMinor
	out.MinR2ForSignificance = cfg.MinR2

	treatment, err := ld.ParseHetTreatment(cfg.Treatment)
	if err != nil {
		return out, err
	}
	out.HetTreatment = treatment

	switch cfg.Design {
	case "all":
		out.Design = ld.AllPairs{}
	case "window":
		out.Design = ld.SlidingWindow{Width: cfg.Window}
	case "site":
		out.Design = ld.SiteVsAll{Target: cfg.Target}
	case "list":
		out.Design = ld.SiteList{Sites: sites}
	default:
		return out, fmt.Errorf("%w: %q", ld.ErrUnknownDesign, cfg.Design)
	}

	return out, nil
}
