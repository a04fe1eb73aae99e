// Command simulator stands in for the metrix solver. It writes one
// result_s<variant> file per variant of the requested range, so the
// coordinator can be exercised without the real executable:
//
//	solver:
//	  command: simulator
//	  args: ["--dir", "{dir}", "--first", "{first}", "--last", "{last}"]
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

func main() {
	cfg := parseFlags()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if !cfg.Verbose {
		log.SetOutput(io.Discard)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Dir, "dir", ".", "output directory")
	flag.IntVar(&cfg.First, "first", 0, "first variant")
	flag.IntVar(&cfg.Last, "last", 0, "last variant")
	flag.IntVar(&cfg.Branches, "branches", 3, "number of monitored branches")
	flag.IntVar(&cfg.Outages, "outages", 2, "number of simulated outages")
	flag.Float64Var(&cfg.MissingRate, "missing-rate", 0, "probability that a variant writes no result file")
	flag.Float64Var(&cfg.FailRate, "fail-rate", 0, "probability that the run exits with an error")
	flag.Int64Var(&cfg.Seed, "seed", 1, "random seed")
	flag.DurationVar(&cfg.Delay, "delay", 0, "time spent per variant")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()
	return cfg
}

// run writes the result files of every variant in [First, Last].
func run(cfg Config) error {
	rng := rand.New(rand.NewSource(cfg.Seed + int64(cfg.First)))
	if rng.Float64() < cfg.FailRate {
		return fmt.Errorf("simulated solver failure on variants [%d, %d]", cfg.First, cfg.Last)
	}
	for v := cfg.First; v <= cfg.Last; v++ {
		if cfg.Delay > 0 {
			time.Sleep(cfg.Delay)
		}
		if rng.Float64() < cfg.MissingRate {
			log.Printf("variant %d: no result", v)
			continue
		}
		path := filepath.Join(cfg.Dir, "result_s"+strconv.Itoa(v))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := writeVariant(f, v, cfg, rng); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Printf("variant %d written to %s", v, path)
	}
	return nil
}
