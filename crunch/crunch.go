package crunch

import (
	"math"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// Columns names the fields of a subread statistics row, in row order.
// Consumers of the serialized table rely on this exact schema.
var Columns = []string{"Length", "Accuracy", "Read quality", "isFirst", "modStart"}

// ModStartFiller is written to the modStart column of every subread
// row. The column has no physical meaning but downstream consumers
// expect it to be present.
const ModStartFiller = 99999.0

// AlignmentSource provides random access to the parallel per-record
// fields of an alignment container. Indexes are dense in
// [0, NumRecords()) and a given index refers to the same record
// across all methods.
type AlignmentSource interface {
	NumRecords() int
	// MovieName resolves the record's read group to a movie name.
	// Returns "" when the group cannot be resolved.
	MovieName(i int) string
	HoleNumber(i int) int
	// Query returns the query start/end of the record. The pair
	// (-1, -1) means the whole read was aligned with no clipping.
	Query(i int) (qStart, qEnd int)
	Alignment(i int) (aStart, aEnd int)
	Identity(i int) float64
	ReadQual(i int) float64
}

// ZmwID identifies one physical read (one hole of one movie). A read
// may produce multiple subreads.
type ZmwID struct {
	Movie string
	Hole  int
}

// SubreadID identifies one aligned subread of a read.
type SubreadID struct {
	Movie        string
	Hole         int
	QStart, QEnd int
}

// SubreadRow is one subread statistics row. Fields follow Columns.
type SubreadRow []float64

// Span is the union of the reference intervals covered by the
// subreads of one read.
type Span struct {
	Start, End int
}

// Length returns the reference extent of the span.
func (s Span) Length() int { return s.End - s.Start }

// MaxSubread records the longest subread seen so far for a read.
type MaxSubread struct {
	ID     SubreadID
	Length int
}

// Crunched holds the intermediate mappings produced by one Crunch
// pass. All maps are keyed as described in the package comment.
type Crunched struct {
	// Subreads maps each distinct SubreadID seen for the target
	// movie to its statistics row. On duplicate ids the latest row
	// wins.
	Subreads map[SubreadID]SubreadRow
	// Spans maps each distinct ZmwID seen to its union reference
	// span.
	Spans map[ZmwID]Span
	// MaxSubread maps each ZmwID to its longest subread. Ties keep
	// the first-seen subread.
	MaxSubread map[ZmwID]MaxSubread
	// Movies is the set of movie names present anywhere in the
	// container, selected or not.
	Movies map[string]bool
	// DuplicateSubreads counts SubreadID collisions observed during
	// the pass.
	DuplicateSubreads int
}

// SortedMovieNames returns the discovered movie names in lexical
// order. Movies is an unordered set; callers that feed Build must fix
// an order first or the table layout will vary between runs.
func (c *Crunched) SortedMovieNames() []string {
	names := make([]string, 0, len(c.Movies))
	for name := range c.Movies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Crunch scans every record of src once and aggregates the records
// belonging to movie. Records from other movies contribute only their
// movie name to the discovered set; the whole container is scanned
// regardless of the selection, so callers must budget for a full
// pass.
//
// A record whose query bounds carry the (-1, -1) unclipped sentinel
// is keyed as if it covered (0, aEnd-aStart). Duplicate SubreadIDs
// are not fatal: the latest row replaces the earlier one and the
// collision is logged and counted.
//
// Crunch fails only when movie never appears in the container.
func Crunch(src AlignmentSource, movie string) (*Crunched, error) {
	if movie == "" {
		return nil, errors.E("no movie name given")
	}
	c := &Crunched{
		Subreads:   make(map[SubreadID]SubreadRow),
		Spans:      make(map[ZmwID]Span),
		MaxSubread: make(map[ZmwID]MaxSubread),
		Movies:     make(map[string]bool),
	}

	// isFirst is a property of the scan order: a subread is "first"
	// when its ZmwID differs from the previous matching record's
	// ZmwID. Records from other movies do not advance this state.
	var lastZmw ZmwID
	haveLast := false

	n := src.NumRecords()
	for i := 0; i < n; i++ {
		name := src.MovieName(i)
		if name != "" {
			c.Movies[name] = true
		}
		if name != movie {
			continue
		}

		aStart, aEnd := src.Alignment(i)
		qStart, qEnd := src.Query(i)
		if qStart == -1 && qEnd == -1 {
			// Unclipped read. The bounds only key the subread, so an
			// exact value is not required; the aligned length keeps
			// distinct subreads distinct in practice.
			qStart = 0
			qEnd = aEnd - aStart
		}

		zmw := ZmwID{Movie: name, Hole: src.HoleNumber(i)}
		sub := SubreadID{Movie: name, Hole: zmw.Hole, QStart: qStart, QEnd: qEnd}
		length := aEnd - aStart

		isFirst := 0.0
		if !haveLast || zmw != lastZmw {
			isFirst = 1.0
		}
		lastZmw = zmw
		haveLast = true

		if _, ok := c.Subreads[sub]; ok {
			log.Error.Printf("duplicate subread %v: keeping the later record", sub)
			c.DuplicateSubreads++
		}
		c.Subreads[sub] = SubreadRow{
			float64(length),
			src.Identity(i),
			src.ReadQual(i),
			isFirst,
			ModStartFiller,
		}

		// Strict > so the first-seen subread wins length ties.
		if max, ok := c.MaxSubread[zmw]; !ok || length > max.Length {
			c.MaxSubread[zmw] = MaxSubread{ID: sub, Length: length}
		}

		span, ok := c.Spans[zmw]
		if !ok {
			span = Span{Start: math.MaxInt64, End: math.MinInt64}
		}
		if aStart < span.Start {
			span.Start = aStart
		}
		if aEnd > span.End {
			span.End = aEnd
		}
		c.Spans[zmw] = span
	}

	if !c.Movies[movie] {
		return nil, errors.E("movie not present in alignment container:", movie)
	}
	log.Debug.Printf("crunched movie %s: %d subreads, %d reads, %d movies in container",
		movie, len(c.Subreads), len(c.Spans), len(c.Movies))
	return c, nil
}
