package report

import (
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/biogo/biogo/io/featio"
	"github.com/biogo/biogo/io/featio/gff"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// contigStats accumulates per-contig consensus statistics from the
// alignment summary and variants GFF streams.
type contigStats struct {
	length      int     // max feature end seen
	gapBases    int     // sum of gap lengths
	errBases    int     // sum of variant call lengths
	weightedCov float64 // coverage times covered length, summed
}

// VariantPoint is one binned variant count along a contig, for
// plotting by an external renderer.
type VariantPoint struct {
	Pos           int
	Ins, Del, Snv int
}

// ContigVariants carries the plottable variant series of one contig.
type ContigVariants struct {
	SeqID  string
	Points []VariantPoint
}

// ConsensusStats reads an alignment_summary.gff and a variants.gff
// and produces the consensus calling report: a per-contig table of
// length, bases called, concordance and coverage, plus their
// length-weighted means, restricted to the maxContigs longest
// contigs. The per-contig variant position series is returned
// alongside for plot rendering.
func ConsensusStats(alnSummaryGFF, variantsGFF string, maxContigs int) (*Report, []ContigVariants, error) {
	stats := make(map[string]*contigStats)
	variants := make(map[string]*ContigVariants)

	log.Debug.Printf("reading alignment summary from %s", alnSummaryGFF)
	err := eachGFF(alnSummaryGFF, func(f *gff.Feature) error {
		seqid := strings.Fields(f.SeqName)[0]
		cs := stats[seqid]
		if cs == nil {
			cs = &contigStats{}
			stats[seqid] = cs
		}
		if f.FeatEnd > cs.length {
			cs.length = f.FeatEnd
		}
		gaps, ok := attrValue(f, "gaps")
		if !ok {
			return errors.Errorf("region %s:%d-%d has no gaps attribute", seqid, f.FeatStart, f.FeatEnd)
		}
		gapParts := strings.Split(gaps, ",")
		lenGaps, err := strconv.Atoi(gapParts[len(gapParts)-1])
		if err != nil {
			return errors.Wrapf(err, "bad gaps attribute %q", gaps)
		}
		cs.gapBases += lenGaps
		if cov2, ok := attrValue(f, "cov2"); ok {
			meanCov, err := strconv.ParseFloat(strings.Split(cov2, ",")[0], 64)
			if err != nil {
				return errors.Wrapf(err, "bad cov2 attribute %q", cov2)
			}
			// biogo normalizes GFF to 0-based half-open coordinates,
			// so the region covers FeatEnd-FeatStart bases.
			cs.weightedCov += meanCov * float64(f.FeatEnd-f.FeatStart)
		}

		cv := variants[seqid]
		if cv == nil {
			cv = &ContigVariants{SeqID: seqid}
			variants[seqid] = cv
		}
		cv.Points = append(cv.Points, VariantPoint{
			Pos: f.FeatStart,
			Ins: attrInt(f, "ins"),
			Del: attrInt(f, "del"),
			Snv: attrInt(f, "sub"),
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(stats) == 0 {
		return nil, nil, errors.Errorf("no regions found in %s", alnSummaryGFF)
	}

	log.Debug.Printf("reading variant calls from %s", variantsGFF)
	err = eachGFF(variantsGFF, func(f *gff.Feature) error {
		seqid := strings.Fields(f.SeqName)[0]
		cs := stats[seqid]
		if cs == nil {
			// Calls can land outside the summarized contigs; not an
			// error, the call just does not contribute.
			log.Error.Printf("unable to find %s in %s", seqid, alnSummaryGFF)
			return nil
		}
		cs.errBases += f.FeatEnd - f.FeatStart
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	ordered := contigsByLength(stats)
	if maxContigs > 0 && len(ordered) > maxContigs {
		ordered = ordered[:maxContigs]
	}

	table := Table{
		ID:    "consensus_table",
		Title: "Consensus Calling Results",
		Columns: []Column{
			{ID: "contig_name", Header: "Reference"},
			{ID: "contig_len", Header: "Reference Length"},
			{ID: "bases_called", Header: "Bases Called"},
			{ID: "concordance", Header: "Consensus Accuracy"},
			{ID: "coverage", Header: "Base Coverage"},
		},
	}

	var sumLengths, meanBasesCalled, meanConcordance, meanCoverage float64
	for _, seqid := range ordered {
		cs := stats[seqid]
		length := float64(cs.length)
		gaps := float64(cs.gapBases)

		basesCalled := 1.0 - gaps/length
		concordance := 0.0
		if cs.length != cs.gapBases {
			concordance = 1.0 - float64(cs.errBases)/(length-gaps)
		}
		coverage := cs.weightedCov / length

		sumLengths += length
		meanBasesCalled += basesCalled * length
		meanConcordance += concordance * length
		meanCoverage += coverage * length

		table.AddValue("contig_name", seqid)
		table.AddValue("contig_len", length)
		table.AddValue("bases_called", basesCalled)
		table.AddValue("concordance", concordance)
		table.AddValue("coverage", coverage)
	}

	rpt := &Report{
		ID:      "variants",
		Title:   "Consensus Variants",
		Version: Version,
		Attributes: []Attribute{
			{"mean_contig_length", "Average Reference Length", sumLengths / float64(len(ordered))},
			{"weighted_mean_bases_called", "Average Reference Bases Called", meanBasesCalled / sumLengths},
			{"weighted_mean_concordance", "Average Reference Consensus Concordance", meanConcordance / sumLengths},
			{"weighted_mean_coverage", "Average Reference Coverage", meanCoverage / sumLengths},
			{"longest_contig_name", "Longest Reference Contig", ordered[0]},
		},
		Tables: []Table{table},
	}

	series := make([]ContigVariants, 0, len(ordered))
	for _, seqid := range ordered {
		if cv := variants[seqid]; cv != nil {
			series = append(series, *cv)
		}
	}
	return rpt, series, nil
}

// eachGFF streams the features of one GFF file through fn.
func eachGFF(path string, fn func(*gff.Feature) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening GFF %s", path)
	}
	defer f.Close() // nolint: errcheck

	sc := featio.NewScanner(gff.NewReader(f))
	for sc.Next() {
		feat, ok := sc.Feat().(*gff.Feature)
		if !ok {
			continue
		}
		if err := fn(feat); err != nil {
			return err
		}
	}
	return errors.Wrapf(sc.Error(), "reading GFF %s", path)
}

// attrValue looks up a feature attribute by tag. Both the GFF2
// ("tag value") and GFF3 ("tag=value") encodings occur in the wild,
// and the reader's splitting differs between them, so scan the raw
// attribute text for either form.
func attrValue(f *gff.Feature, key string) (string, bool) {
	for _, a := range f.FeatAttributes {
		raw := a.Tag
		if a.Value != "" {
			raw += " " + a.Value
		}
		for _, part := range strings.Split(raw, ";") {
			part = strings.TrimSpace(part)
			if eq := strings.IndexByte(part, '='); eq >= 0 {
				if part[:eq] == key {
					return part[eq+1:], true
				}
				continue
			}
			if kv := strings.Fields(part); len(kv) == 2 && kv[0] == key {
				return kv[1], true
			}
		}
	}
	return "", false
}

func attrInt(f *gff.Feature, key string) int {
	s, ok := attrValue(f, key)
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}

// contigsByLength returns the contig ids ordered longest first, with
// name as the tie break so the order is total.
func contigsByLength(stats map[string]*contigStats) []string {
	ids := make([]string, 0, len(stats))
	for id := range stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if stats[ids[i]].length != stats[ids[j]].length {
			return stats[ids[i]].length > stats[ids[j]].length
		}
		return ids[i] < ids[j]
	})
	return ids
}
