// Package alnindex presents an alignment container as parallel
// per-record field arrays, the shape the crunch package consumes.
// The arrays are populated in one sequential read of a PacBio-style
// BAM file; a fixed record index addresses the same alignment across
// every field.
package alnindex

import (
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

var (
	rgTag = sam.Tag{'R', 'G'}
	zmTag = sam.Tag{'z', 'm'}
	qsTag = sam.Tag{'q', 's'}
	qeTag = sam.Tag{'q', 'e'}
	rqTag = sam.Tag{'r', 'q'}
	nmTag = sam.Tag{'N', 'M'}
)

// Index is a column-oriented view over the usable alignments of one
// BAM file. Unmapped, secondary and supplementary records are dropped
// at load time, so every index row is a primary mapped alignment.
//
// Index implements crunch.AlignmentSource. It is immutable after
// ReadBAM returns.
type Index struct {
	// groupMovie resolves a read-group name to its movie name (the
	// @RG PU field).
	groupMovie map[string]string

	group    []string
	hole     []int
	qStart   []int
	qEnd     []int
	aStart   []int
	aEnd     []int
	identity []float64
	readQual []float64
}

// ReadBAM loads the alignment columns of the BAM file at path into
// memory. The per-record BAM payload (sequence, qualities, aux tags)
// is discarded after the numeric fields are extracted, so the
// resident footprint is a few machine words per alignment.
func ReadBAM(path string) (idx *Index, err error) {
	ctx := vcontext.Background()
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "opening alignment container:", path)
	}
	defer file.CloseAndReport(ctx, f, &err)
	r, err := bam.NewReader(f.Reader(ctx), 1)
	if err != nil {
		return nil, errors.E(err, "reading BAM header:", path)
	}
	defer r.Close() // nolint: errcheck

	idx = &Index{groupMovie: make(map[string]string)}
	for _, rg := range r.Header().RGs() {
		movie := rg.PlatformUnit()
		if movie == "" {
			// Older converters leave PU unset and name the group
			// after the movie itself.
			movie = rg.Name()
		}
		idx.groupMovie[rg.Name()] = movie
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(err, "reading BAM record:", path)
		}
		idx.add(rec)
		sam.PutInFreePool(rec)
	}
	vlog.VI(1).Infof("indexed %d alignments from %s (%d read groups)",
		idx.NumRecords(), path, len(idx.groupMovie))
	return idx, nil
}

// add appends rec's fields to the index. Records that are not primary
// mapped alignments are skipped.
func (idx *Index) add(rec *sam.Record) {
	if rec.Flags&(sam.Unmapped|sam.Secondary|sam.Supplementary) != 0 {
		return
	}
	group := ""
	if aux := rec.AuxFields.Get(rgTag); aux != nil {
		group = aux.Value().(string)
	}
	if _, ok := idx.groupMovie[group]; !ok {
		// Keep the lookup total; a group with no @RG line resolves
		// to the absent name instead of failing the build.
		vlog.Errorf("no movie name for read group %q", group)
		idx.groupMovie[group] = ""
	}
	idx.group = append(idx.group, group)
	idx.hole = append(idx.hole, holeNumber(rec))
	qs, qe := queryBounds(rec)
	idx.qStart = append(idx.qStart, qs)
	idx.qEnd = append(idx.qEnd, qe)
	idx.aStart = append(idx.aStart, rec.Pos)
	idx.aEnd = append(idx.aEnd, rec.End())
	idx.identity = append(idx.identity, identity(rec))
	idx.readQual = append(idx.readQual, auxFloat(rec, rqTag, 0))
}

// NumRecords returns the number of indexed alignments.
func (idx *Index) NumRecords() int { return len(idx.group) }

// MovieName resolves record i's read group to a movie name. An
// unresolvable group is not fatal and yields "".
func (idx *Index) MovieName(i int) string {
	return idx.groupMovie[idx.group[i]]
}

// HoleNumber returns the ZMW hole number of record i.
func (idx *Index) HoleNumber(i int) int { return idx.hole[i] }

// Query returns the query start/end of record i; (-1, -1) means the
// whole read was aligned unclipped.
func (idx *Index) Query(i int) (qStart, qEnd int) { return idx.qStart[i], idx.qEnd[i] }

// Alignment returns the reference start/end of record i.
func (idx *Index) Alignment(i int) (aStart, aEnd int) { return idx.aStart[i], idx.aEnd[i] }

// Identity returns the aligned identity of record i in [0, 1].
func (idx *Index) Identity(i int) float64 { return idx.identity[i] }

// ReadQual returns the predicted read quality of record i.
func (idx *Index) ReadQual(i int) float64 { return idx.readQual[i] }

// holeNumber extracts the ZMW hole number from the zm aux tag,
// falling back to the movie/hole/qStart_qEnd read-name convention.
func holeNumber(rec *sam.Record) int {
	if aux := rec.AuxFields.Get(zmTag); aux != nil {
		if v, ok := auxInt(aux); ok {
			return v
		}
	}
	parts := strings.Split(rec.Name, "/")
	if len(parts) >= 2 {
		if v, err := strconv.Atoi(parts[1]); err == nil {
			return v
		}
	}
	vlog.Errorf("no hole number on record %q", rec.Name)
	return -1
}

// queryBounds extracts the qs/qe aux tags. Records without them carry
// the unclipped sentinel.
func queryBounds(rec *sam.Record) (int, int) {
	qsAux := rec.AuxFields.Get(qsTag)
	qeAux := rec.AuxFields.Get(qeTag)
	if qsAux == nil || qeAux == nil {
		return -1, -1
	}
	qs, qsOK := auxInt(qsAux)
	qe, qeOK := auxInt(qeAux)
	if !qsOK || !qeOK {
		return -1, -1
	}
	return qs, qe
}

// identity computes the aligned identity of rec from its NM edit
// distance over the aligned reference span, clamped to [0, 1].
// Records without an NM tag are reported as identity 0 so they stand
// out rather than inflating accuracy summaries.
func identity(rec *sam.Record) float64 {
	aux := rec.AuxFields.Get(nmTag)
	if aux == nil {
		return 0
	}
	nm, ok := auxInt(aux)
	if !ok {
		return 0
	}
	span := rec.End() - rec.Pos
	if span <= 0 {
		return 0
	}
	id := 1.0 - float64(nm)/float64(span)
	if id < 0 {
		return 0
	}
	return id
}

// auxInt widens the integer aux encodings ('c', 'C', 's', 'S', 'i',
// 'I') to int.
func auxInt(aux sam.Aux) (int, bool) {
	switch v := aux.Value().(type) {
	case int8:
		return int(v), true
	case uint8:
		return int(v), true
	case int16:
		return int(v), true
	case uint16:
		return int(v), true
	case int32:
		return int(v), true
	case uint32:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

func auxFloat(rec *sam.Record, tag sam.Tag, missing float64) float64 {
	aux := rec.AuxFields.Get(tag)
	if aux == nil {
		return missing
	}
	switch v := aux.Value().(type) {
	case float32:
		return float64(v)
	case float64:
		return v
	default:
		if i, ok := auxInt(aux); ok {
			return float64(i)
		}
		return missing
	}
}
