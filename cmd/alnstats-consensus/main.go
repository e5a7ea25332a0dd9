package main

/*
alnstats-consensus builds the consensus calling report from an
alignment summary GFF and a variants GFF: per-contig length, bases
called, concordance and coverage for the longest contigs, plus their
length-weighted means.
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/alnstats/report"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
)

var (
	maxContigs = flag.Int("max-contigs", 25, "Maximum number of contigs reported")
	out        = flag.String("out", "variants_report.json", "Output JSON report path")
)

func consensusUsage() {
	fmt.Printf("Usage: %s [OPTIONS] alignment_summary.gff variants.gff\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = consensusUsage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 2 {
		log.Fatalf("Expected two positional arguments (alignment_summary.gff and variants.gff), got %d", flag.NArg())
	}

	rpt, series, err := report.ConsensusStats(flag.Arg(0), flag.Arg(1), *maxContigs)
	if err != nil {
		log.Fatalf("building consensus report: %v", err)
	}
	if err := rpt.WriteFile(*out); err != nil {
		log.Fatalf("writing report: %v", err)
	}
	log.Printf("wrote report on %d contigs to %s", len(series), *out)
}
