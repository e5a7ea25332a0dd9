package report

import (
	"github.com/grailbio/alnstats/crunch"
	"github.com/grailbio/base/log"
)

// MappingStats summarizes a crunched table as a report: overall
// mapped read/subread counts, mean and 95th percentile lengths, mean
// accuracy, and a per-movie breakdown table.
func MappingStats(t *crunch.Table) (*Report, error) {
	subreads := t.Subreads(nil)
	lengths, err := subreads.Column("Length")
	if err != nil {
		return nil, err
	}
	accuracies, err := subreads.Column("Accuracy")
	if err != nil {
		return nil, err
	}
	reads := t.Reads(nil)

	rpt := &Report{
		ID:      "mapping_stats",
		Title:   "Mapping Statistics",
		Version: Version,
		Attributes: []Attribute{
			{"mapped_reads_n", "Mapped Reads", len(reads)},
			{"mapped_subreads_n", "Mapped Subreads", subreads.Len()},
			{"mapped_readlength_mean", "Mapped Read Length Mean", mean(reads)},
			{"mapped_readlength_q95", "Mapped Read Length 95%", percentile95(reads)},
			{"mapped_subread_length_mean", "Mapped Subread Length Mean", mean(lengths)},
			{"mapped_subread_length_q95", "Mapped Subread Length 95%", percentile95(lengths)},
			{"mapped_subread_accuracy_mean", "Mapped Subread Accuracy Mean", mean(accuracies)},
		},
	}

	table := Table{
		ID:    "mapping_stats_table",
		Title: "Mapping Statistics Summary",
		Columns: []Column{
			{ID: "movie", Header: "Movie"},
			{ID: "mapped_reads", Header: "Mapped Reads"},
			{ID: "mapped_subreads", Header: "Mapped Subreads"},
			{ID: "mapped_subread_length_mean", Header: "Mapped Subread Length Mean"},
			{ID: "mapped_subread_accuracy_mean", Header: "Mapped Subread Accuracy Mean"},
		},
	}
	for _, m := range t.Movies() {
		m := m
		mLengths, err := t.Subreads(&m).Column("Length")
		if err != nil {
			return nil, err
		}
		mAccuracies, err := t.Subreads(&m).Column("Accuracy")
		if err != nil {
			return nil, err
		}
		table.AddValue("movie", m.ShortName())
		table.AddValue("mapped_reads", m.RLen)
		table.AddValue("mapped_subreads", m.SLen)
		table.AddValue("mapped_subread_length_mean", mean(mLengths))
		table.AddValue("mapped_subread_accuracy_mean", mean(mAccuracies))
	}
	rpt.Tables = append(rpt.Tables, table)

	log.Debug.Printf("mapping stats: %d reads, %d subreads, %d movies",
		len(reads), subreads.Len(), len(t.Movies()))
	return rpt, nil
}

// percentile95 guards the empty case so empty tables serialize as 0
// instead of a JSON-hostile NaN.
func percentile95(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return crunch.Percentile(95, v)
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}
