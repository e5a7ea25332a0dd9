package main

/*
alnstats crunches a PacBio-style BAM into movie-indexed mapping
statistics and writes them out as a JSON report, with an optional TSV
dump of the per-subread table.
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/alnstats/alnindex"
	"github.com/grailbio/alnstats/crunch"
	"github.com/grailbio/alnstats/report"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

var (
	movie   = flag.String("movie", "", "Movie name to crunch; required")
	out     = flag.String("out", "mapping_stats.json", "Output JSON report path")
	tsvPath = flag.String("tsv", "", "Optional output path for a TSV dump of the subread table")
)

func alnstatsUsage() {
	fmt.Printf("Usage: %s [OPTIONS] bampath\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = alnstatsUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("Expected exactly one positional argument (bampath), got %d", flag.NArg())
	}
	if *movie == "" {
		log.Fatalf("-movie is required")
	}
	bamPath := flag.Arg(0)

	idx, err := alnindex.ReadBAM(bamPath)
	if err != nil {
		log.Fatalf("%s: %v", bamPath, err)
	}
	crunched, err := crunch.Crunch(idx, *movie)
	if err != nil {
		log.Fatalf("%s: %v", bamPath, err)
	}
	log.Printf("crunched %s: found %d movies", bamPath, len(crunched.Movies))

	table, err := crunch.Build(crunched.SortedMovieNames(), crunched.Spans, crunched.Subreads, crunch.Columns)
	if err != nil {
		log.Fatalf("building movie-indexed table: %v", err)
	}

	rpt, err := report.MappingStats(table)
	if err != nil {
		log.Fatalf("building mapping stats report: %v", err)
	}
	if err := rpt.WriteFile(*out); err != nil {
		log.Fatalf("writing report: %v", err)
	}
	log.Printf("wrote report to %s", *out)

	if *tsvPath != "" {
		f, err := os.Create(*tsvPath)
		if err != nil {
			log.Fatalf("creating %s: %v", *tsvPath, err)
		}
		if err := table.WriteTSV(f); err != nil {
			log.Fatalf("writing %s: %v", *tsvPath, err)
		}
		if err := f.Close(); err != nil {
			log.Fatalf("closing %s: %v", *tsvPath, err)
		}
	}
}
