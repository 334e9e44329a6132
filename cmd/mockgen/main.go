package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"mcs-forecast/cmd/mockgen/engine"
	"mcs-forecast/internal/history"
)

func main() {
	scenario := flag.String("scenario", "mild", "Scenario to generate: mild, chaos, drift")
	distribution := flag.String("distribution", "uniform", "Distribution to use: uniform, weibull")
	outDir := flag.String("out", "./cache", "Cache directory holding the history store")
	name := flag.String("name", "history", "Store name (MCS_STORE_NAME)")
	project := flag.String("project", "MCSTEST", "Project key prefix")
	count := flag.Int("count", 200, "Number of issues to generate")
	seed := flag.Uint64("seed", 0, "Random seed (0 = random)")
	flag.Parse()

	cfg := engine.GeneratorConfig{
		Scenario:     *scenario,
		Distribution: *distribution,
		Count:        *count,
		Project:      *project,
		Seed:         *seed,
		Now:          time.Now(),
	}

	path := history.Path(*outDir, *name)
	fmt.Printf("Generating scenario '%s' (Distribution: %s, Count: %d) to %s...\n", cfg.Scenario, cfg.Distribution, cfg.Count, path)

	items := engine.Generate(cfg)

	added, err := engine.Save(path, items)
	if err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done. %d of %d items added.\n", added, len(items))
}
